package assembly

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveReferencePathSameDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dep.dll"), []byte("x"), 0o644))

	s := &AssemblySet{byName: map[string]*Assembly{}}
	path, err := s.resolveReferencePath("Dep", dir, Manifest{}, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Dep.dll"), path)
}

func TestResolveReferencePathManifestFallback(t *testing.T) {
	dir := t.TempDir()
	depPath := filepath.Join(dir, "elsewhere", "Dep.dll")
	require.NoError(t, os.MkdirAll(filepath.Dir(depPath), 0o755))
	require.NoError(t, os.WriteFile(depPath, []byte("x"), 0o644))

	s := &AssemblySet{byName: map[string]*Assembly{}}
	path, err := s.resolveReferencePath("Dep", filepath.Join(dir, "nothinghere"), Manifest{RuntimeFiles: []string{depPath}}, "")
	require.NoError(t, err)
	require.Equal(t, depPath, path)
}

func TestResolveReferencePathStdlibFallback(t *testing.T) {
	dir := t.TempDir()
	stdlib := filepath.Join(dir, "stdlib")
	require.NoError(t, os.MkdirAll(stdlib, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stdlib, "mscorlib.dll"), []byte("x"), 0o644))

	s := &AssemblySet{byName: map[string]*Assembly{}}
	path, err := s.resolveReferencePath("mscorlib", filepath.Join(dir, "nothinghere"), Manifest{}, stdlib)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stdlib, "mscorlib.dll"), path)
}

func TestResolveReferencePathMissing(t *testing.T) {
	dir := t.TempDir()
	s := &AssemblySet{byName: map[string]*Assembly{}}
	_, err := s.resolveReferencePath("Nope", dir, Manifest{}, "")
	require.ErrorIs(t, err, ErrMissingFile)
}
