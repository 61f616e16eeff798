package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecove/notecove/pkg/version"
)

// runCLI executes the root command against an isolated data directory.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--data-dir", dataDir))
	err := cmd.Execute()
	return buf.String(), err
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "notecove")
	assert.Contains(t, buf.String(), version.Version)
}

func TestRootHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "corpus", "index", "search", "paths", "session", "watch", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestConfigInitShowPath(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	t.Cleanup(func() { configPath = "" })

	out, err := runCLI(t, dataDir, "config", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration file")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_chunk_chars")

	// A second init without --force must leave the file alone.
	out, err = runCLI(t, dataDir, "config", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = runCLI(t, dataDir, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "chunking")
	assert.Contains(t, out, "cosine")

	out, err = runCLI(t, dataDir, "config", "path", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, strings.TrimSpace(out))
}

func TestCorpusAddListRemove(t *testing.T) {
	dataDir := t.TempDir()
	notes := t.TempDir()
	writeNote(t, notes, "a.md", "Hello.")

	out, err := runCLI(t, dataDir, "corpus", "add", "personal", notes)
	require.NoError(t, err)
	assert.Contains(t, out, "personal")

	out, err = runCLI(t, dataDir, "corpus", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "personal")
	assert.Contains(t, out, notes)

	// Duplicate names are rejected.
	_, err = runCLI(t, dataDir, "corpus", "add", "personal", notes)
	require.Error(t, err)

	_, err = runCLI(t, dataDir, "corpus", "remove", "personal")
	require.NoError(t, err)

	out, err = runCLI(t, dataDir, "corpus", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No corpora registered")
}

func TestIndexAndSearchFlow(t *testing.T) {
	dataDir := t.TempDir()
	notes := t.TempDir()
	writeNote(t, notes, "recipes.md", "Slow braising makes tough cuts tender.")
	writeNote(t, notes, "boats.md", "Trim the mainsail when the wind shifts aft.")

	_, err := runCLI(t, dataDir, "corpus", "add", "personal", notes)
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "2 indexed")

	out, err = runCLI(t, dataDir, "search", "braising tender cuts", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "recipes.md")
}

func TestSearchJSONFormat(t *testing.T) {
	dataDir := t.TempDir()
	notes := t.TempDir()
	writeNote(t, notes, "a.md", "A note about gardens.")

	_, err := runCLI(t, dataDir, "corpus", "add", "personal", notes)
	require.NoError(t, err)
	_, err = runCLI(t, dataDir, "index")
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "search", "gardens", "--format", "json")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0]["Path"])
}

func TestPathsSubtreePattern(t *testing.T) {
	dataDir := t.TempDir()
	notes := t.TempDir()
	writeNote(t, notes, "docs/a.md", "One.")
	writeNote(t, notes, "docs/deep/b.md", "Two.")
	writeNote(t, notes, "top.md", "Three.")

	_, err := runCLI(t, dataDir, "corpus", "add", "personal", notes)
	require.NoError(t, err)
	_, err = runCLI(t, dataDir, "index")
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "paths", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "docs/a.md")
	assert.Contains(t, out, "docs/deep/b.md")
	assert.NotContains(t, out, "top.md")
}

func TestSessionLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	notes := t.TempDir()
	writeNote(t, notes, "a.md", "A note.")

	_, err := runCLI(t, dataDir, "corpus", "add", "personal", notes)
	require.NoError(t, err)
	_, err = runCLI(t, dataDir, "index")
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "session", "create", "personal")
	require.NoError(t, err)

	// The id appears in the create output and in the listing.
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 3)
	id := fields[2]

	out, err = runCLI(t, dataDir, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = runCLI(t, dataDir, "search", "note", "--session", id)
	require.NoError(t, err)
	assert.Contains(t, out, "a.md")

	_, err = runCLI(t, dataDir, "session", "discard", id)
	require.NoError(t, err)

	_, err = runCLI(t, dataDir, "search", "note", "--session", id)
	require.Error(t, err)
}

func TestSearchWithoutCorpora(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "search", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no corpora registered")
}
