// Package assembly builds the closed, queryable universe of assemblies
// visible to one build (SPEC_FULL.md §4.1, AssemblySet): it opens the
// primary assembly and every assembly it transitively references, and
// exposes iterate-all-types / lookup-by-canonical-name / lookup-method
// operations over the result. Everything it produces is immutable once
// Open returns — ReachabilityAnalyzer and the IR builder only read it.
package assembly

import (
	"fmt"

	"github.com/cil2cpp/aotc/internal/metadata"
	"github.com/cil2cpp/aotc/internal/peimage"
)

// Assembly is one opened, fully table-decoded managed module.
type Assembly struct {
	CanonicalName string
	Version       Version
	Path          string
	HasDebugInfo  bool

	image  *peimage.Image
	root   *metadata.Root
	tables *metadata.Tables

	Types []*Type // index order matches TypeDef row order (row 0 is <Module>)

	qualNames    map[uint32]string // TypeDef row -> cached full name
	enclosingRow map[uint32]uint32 // nested TypeDef row -> enclosing TypeDef row
	byFullName   map[string]*Type
}

// Version is a four-part assembly version, matching ECMA-335's
// Major.Minor.Build.Revision AssemblyRow/AssemblyRefRow columns.
type Version struct {
	Major, Minor, Build, Revision uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Tables exposes the decoded metadata tables backing this assembly, for
// packages (internal/ir, internal/il) that need raw row access the Type/
// Method/Field wrappers don't surface.
func (a *Assembly) Tables() *metadata.Tables { return a.tables }

// Root exposes the assembly's metadata root, for heap lookups (#Blob,
// #US) keyed by offsets stored on Type/Method/Field.
func (a *Assembly) Root() *metadata.Root { return a.root }

// ReadRVA returns n raw bytes at the given relative virtual address —
// internal/ir Pass 7's way of reading an RVA-backed static field's
// array-init content once it knows the field's length from a ClassLayout
// row.
func (a *Assembly) ReadRVA(rva uint32, n uint32) ([]byte, error) {
	return a.image.ReadAt(rva, n)
}

// Close unmaps the assembly's backing file. Call once the compiler no
// longer needs this assembly (after code generation finishes).
func (a *Assembly) Close() error {
	if a.image == nil {
		return nil
	}
	return a.image.Close()
}

func openAssembly(path string) (*Assembly, error) {
	img, err := peimage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	mdBytes, err := img.MetadataRoot()
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	root, err := metadata.Parse(mdBytes)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tables, err := root.DecodeTables()
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	a := &Assembly{
		Path:      path,
		image:     img,
		root:      root,
		tables:    tables,
		qualNames: make(map[uint32]string),
	}

	if len(tables.Assembly) > 0 {
		row := tables.Assembly[0]
		name, err := root.StringAt(row.Name)
		if err != nil {
			img.Close()
			return nil, fmt.Errorf("%s: assembly name: %w", path, err)
		}
		a.CanonicalName = name
		a.Version = Version{row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber}
	} else {
		// Netmodules (no Assembly row) are named after their Module row.
		if len(tables.Module) == 0 {
			img.Close()
			return nil, fmt.Errorf("%s: no Assembly or Module row", path)
		}
		name, err := root.StringAt(tables.Module[0].Name)
		if err != nil {
			img.Close()
			return nil, fmt.Errorf("%s: module name: %w", path, err)
		}
		a.CanonicalName = name
	}

	// Portable-PDB-adjacent debug info (an embedded or side-car .pdb) is a
	// build-orchestration concern outside this package's scope; a module
	// is treated as carrying debug info when a #Pdb stream is present in
	// its own metadata root (e.g. a PDB-embedded or Windows-PDB-free
	// build), which is the only signal AssemblySet can observe directly.
	if _, ok := root.Streams["#Pdb"]; ok {
		a.HasDebugInfo = true
	}

	if err := a.buildTypes(); err != nil {
		img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return a, nil
}
