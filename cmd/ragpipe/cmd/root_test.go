package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "ragpipe")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "chunk")
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ragpipe")
	assert.Contains(t, out, "dev")
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := executeCommand(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestChunkCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := "First paragraph with enough words to survive the minimum.\n\n" +
		"Second paragraph also long enough to be kept around."
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"chunking:\n  chunk_size: 64\n  chunk_overlap: 2\n  min_chunk_size: 10\n"), 0o644))

	out, err := executeCommand(t, "chunk", path, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "produced")
	assert.Contains(t, out, "prose")
}

func TestChunkCmd_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "chunk", filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestSearchCmd_Offline(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "astro.md"),
		[]byte("The solar system has eight planets orbiting the sun. "+
			"Each planet follows an elliptical orbit around it."), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"chunking:\n  chunk_size: 128\n  chunk_overlap: 2\n  min_chunk_size: 10\n"), 0o644))

	out, err := executeCommand(t, "search", "planets orbiting the sun",
		"--path", dir, "--offline", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "planets")
}

func TestSearchCmd_EmptyDir(t *testing.T) {
	out, err := executeCommand(t, "search", "anything", "--path", t.TempDir(), "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "No ingestable documents")
}
