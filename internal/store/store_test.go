package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixture(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "rules/python.txt", "Use poetry.")
	writeFile(t, root, "rules/golang.txt", "Use go modules.")
	writeFile(t, root, "rules/notes.md", "ignored")
	writeFile(t, root, "rules/golang.yaml", "description: Go service\nrequires: [username, database]\ndatabases: [postgres, sqlite]\n")
	writeFile(t, root, "snippets/golang/auth/jwt.txt", "func JWT() {}")
	writeFile(t, root, "snippets/golang/auth/basic.txt", "func Basic() {}")
	writeFile(t, root, "snippets/golang/db/pool.txt", "func Pool() {}")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snippets/golang/empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snippets/rust"), 0o755))
	return New(root, testLogger())
}

func TestReadRule(t *testing.T) {
	s := fixture(t)
	got, err := s.ReadRule("python")
	require.NoError(t, err)
	assert.Equal(t, "Use poetry.", got)
}

func TestReadRule_Missing(t *testing.T) {
	s := fixture(t)
	_, err := s.ReadRule("cobol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadRule_PathEscape(t *testing.T) {
	s := fixture(t)
	_, err := s.ReadRule("../rules/python")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReadRule("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadSnippet(t *testing.T) {
	s := fixture(t)
	got, err := s.ReadSnippet("golang/auth/jwt")
	require.NoError(t, err)
	assert.Equal(t, "func JWT() {}", got)

	_, err = s.ReadSnippet("golang/auth/oauth")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRules(t *testing.T) {
	s := fixture(t)
	names, err := s.ListRules()
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "python"}, names)
}

func TestListRules_NoDirectory(t *testing.T) {
	s := New(t.TempDir(), testLogger())
	names, err := s.ListRules()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListSnippets(t *testing.T) {
	s := fixture(t)
	cats, err := s.ListSnippets("golang")
	require.NoError(t, err)
	assert.Equal(t, []Category{
		{Name: "auth", Snippets: []string{"basic", "jwt"}},
		{Name: "db", Snippets: []string{"pool"}},
	}, cats)
}

func TestListSnippets_MissingOrEmpty(t *testing.T) {
	s := fixture(t)
	_, err := s.ListSnippets("haskell")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ListSnippets("rust")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuleMeta(t *testing.T) {
	s := fixture(t)
	meta, err := s.RuleMeta("golang")
	require.NoError(t, err)
	assert.Equal(t, "Go service", meta.Description)
	assert.Equal(t, []string{"username", "database"}, meta.Requires)
	assert.Equal(t, []string{"postgres", "sqlite"}, meta.Databases)

	_, err = s.RuleMeta("python")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RootDefaultsToWorkingDir(t *testing.T) {
	assert.Equal(t, ".", New("", testLogger()).Root())
	assert.Equal(t, "lib", New("lib", testLogger()).Root())
}
