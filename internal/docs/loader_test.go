package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# Heading\n\nSome prose.")

	docs, err := NewLoader(nil).Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "# Heading\n\nSome prose.", docs[0].Content)
	assert.Equal(t, path, docs[0].Metadata["source"])
	assert.Equal(t, "notes.md", docs[0].Metadata["filename"])
}

func TestLoader_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "bravo")
	writeFile(t, dir, "sub/c.py", "print('charlie')")
	writeFile(t, dir, "sub/d.go", "package main")
	writeFile(t, dir, "ignored.json", "{}")
	writeFile(t, dir, "ignored.bin", "data")

	docs, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Metadata["filename"]
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.md", "c.py", "d.go"}, names)
}

func TestLoader_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.txt", "last")
	writeFile(t, dir, "a.txt", "first")
	writeFile(t, dir, "m.txt", "middle")

	loader := NewLoader(nil)
	first, err := loader.Load(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := loader.Load(dir)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Metadata["source"], again[j].Metadata["source"])
		}
	}
}

func TestLoader_SkipsHiddenDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.txt", "keep")
	writeFile(t, dir, ".git/config.txt", "skip")

	docs, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "visible.txt", docs[0].Metadata["filename"])
}

func TestLoader_SkipsBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.txt")
	require.NoError(t, os.WriteFile(path, []byte("text\x00binary"), 0o644))
	writeFile(t, dir, "real.txt", "text")

	docs, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "real.txt", docs[0].Metadata["filename"])
}

func TestLoader_MissingPath(t *testing.T) {
	_, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestLoader_EmptyDirectory(t *testing.T) {
	docs, err := NewLoader(nil).Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}
