package assembly

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Sentinel error kinds for reference resolution failures (SPEC_FULL.md
// §4.1: "reported by kind"). Wrap these with fmt.Errorf("%w: ...") rather
// than constructing new error values, so callers can errors.Is against a
// stable kind regardless of the assembly/version detail in the message.
var (
	ErrMissingFile           = errors.New("referenced assembly not found")
	ErrVersionMismatch       = errors.New("referenced assembly version too old")
	ErrDuplicateCanonicalName = errors.New("duplicate canonical assembly name")
)

// AssemblySet is the closed universe of assemblies opened for one build:
// the primary assembly plus everything it transitively references,
// resolved through the same-directory / manifest / stdlib search order.
type AssemblySet struct {
	Primary *Assembly
	byName  map[string]*Assembly
	order   []*Assembly // open order, primary first; stable iteration for codegen
}

// Open resolves and opens primaryPath and its transitive AssemblyRef
// closure. manifestPath may be empty (no side-car manifest); stdlibDir may
// be empty (no standard-library search path configured). All resolution
// failures are collected and returned together via multierr, so a build
// reports every missing/mismatched reference at once rather than stopping
// at the first one (SPEC_FULL.md §4.1: "aborts the build before IR
// construction" — by returning a non-nil error here, never partially).
func Open(primaryPath, manifestPath, stdlibDir string) (*AssemblySet, error) {
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	primary, err := openAssembly(primaryPath)
	if err != nil {
		return nil, fmt.Errorf("primary assembly: %w", err)
	}

	s := &AssemblySet{
		Primary: primary,
		byName:  map[string]*Assembly{primary.CanonicalName: primary},
		order:   []*Assembly{primary},
	}

	worklist := []*Assembly{primary}
	var errs error
	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

		for _, ref := range cur.tables.AssemblyRef {
			name, nerr := cur.root.StringAt(ref.Name)
			if nerr != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: unreadable AssemblyRef name: %w", cur.Path, nerr))
				continue
			}
			want := Version{ref.MajorVersion, ref.MinorVersion, ref.BuildNumber, ref.RevisionNumber}

			if existing, ok := s.byName[name]; ok {
				if !existing.Version.Satisfies(want) {
					errs = multierr.Append(errs, fmt.Errorf("%w: %s wants %s, already opened %s from %s",
						ErrVersionMismatch, name, want, existing.Version, existing.Path))
				}
				continue
			}

			path, ferr := s.resolveReferencePath(name, filepath.Dir(cur.Path), manifest, stdlibDir)
			if ferr != nil {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s (referenced from %s)", ErrMissingFile, name, cur.Path))
				continue
			}

			opened, oerr := openAssembly(path)
			if oerr != nil {
				errs = multierr.Append(errs, fmt.Errorf("opening %s: %w", path, oerr))
				continue
			}
			if !opened.Version.Satisfies(want) {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s wants %s, found %s at %s",
					ErrVersionMismatch, name, want, opened.Version, path))
				continue
			}
			if dup, ok := s.byName[opened.CanonicalName]; ok {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s resolved to both %s and %s",
					ErrDuplicateCanonicalName, opened.CanonicalName, dup.Path, opened.Path))
				opened.Close()
				continue
			}

			s.byName[opened.CanonicalName] = opened
			s.order = append(s.order, opened)
			worklist = append(worklist, opened)
		}
	}

	if errs != nil {
		s.Close()
		return nil, errs
	}

	if err := s.classifyKinds(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// resolveReferencePath implements SPEC_FULL.md §4.1's three-step search:
// (1) the referencing assembly's own directory, (2) the manifest's
// runtime-files list, (3) the standard-library install location.
func (s *AssemblySet) resolveReferencePath(name, referencingDir string, manifest Manifest, stdlibDir string) (string, error) {
	candidate := filepath.Join(referencingDir, name+".dll")
	if fileExists(candidate) {
		return candidate, nil
	}

	for _, rf := range manifest.RuntimeFiles {
		base := strings.TrimSuffix(filepath.Base(rf), filepath.Ext(rf))
		if strings.EqualFold(base, name) && fileExists(rf) {
			return rf, nil
		}
	}

	if stdlibDir != "" {
		candidate = filepath.Join(stdlibDir, name+".dll")
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return "", ErrMissingFile
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Assemblies returns every opened assembly, primary first, in open order.
func (s *AssemblySet) Assemblies() []*Assembly { return s.order }

// ByCanonicalName looks up an opened assembly by its Assembly-table name.
func (s *AssemblySet) ByCanonicalName(name string) (*Assembly, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Close unmaps every opened assembly's backing file.
func (s *AssemblySet) Close() error {
	var errs error
	for _, a := range s.order {
		errs = multierr.Append(errs, a.Close())
	}
	return errs
}
