package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scaffai/internal/domain"
	"scaffai/internal/store"
)

func libraryFixture(t *testing.T) *store.Store {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"rules/python.txt":             "python rule",
		"rules/golang.txt":             "go rule",
		"snippets/golang/auth/jwt.txt": "jwt snippet",
		"snippets/golang/db/pool.txt":  "pool snippet",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return store.New(root, testLogger())
}

func TestReadRuleTool(t *testing.T) {
	tl := NewReadRuleTool(libraryFixture(t))
	ctx := context.Background()

	res := tl.Execute(ctx, "python")
	assert.Equal(t, domain.ResultOK, res.Kind)
	assert.Equal(t, "python rule", res.Text)

	res = tl.Execute(ctx, "cobol")
	assert.Equal(t, domain.ResultNotFound, res.Kind)
	assert.Equal(t, "Rule 'cobol' not found", res.Text)
}

func TestReadSnippetTool(t *testing.T) {
	tl := NewReadSnippetTool(libraryFixture(t))
	ctx := context.Background()

	assert.Equal(t, "jwt snippet", tl.Execute(ctx, "golang/auth/jwt").Text)
	assert.Equal(t, "Snippet 'golang/auth/oauth' not found", tl.Execute(ctx, "golang/auth/oauth").Text)
}

func TestListRulesTool(t *testing.T) {
	res := NewListRulesTool(libraryFixture(t)).Execute(context.Background(), "")
	require.True(t, strings.HasPrefix(res.Text, "Available rules: "))

	names := strings.Split(strings.TrimPrefix(res.Text, "Available rules: "), ", ")
	assert.ElementsMatch(t, []string{"python", "golang"}, names)
}

func TestListRulesTool_Empty(t *testing.T) {
	res := NewListRulesTool(store.New(t.TempDir(), testLogger())).Execute(context.Background(), "")
	assert.Equal(t, "Available rules: ", res.Text)
}

func TestListSnippetsTool(t *testing.T) {
	tl := NewListSnippetsTool(libraryFixture(t))
	ctx := context.Background()

	assert.Equal(t, "auth: jwt\ndb: pool", tl.Execute(ctx, "golang").Text)

	res := tl.Execute(ctx, "haskell")
	assert.Equal(t, domain.ResultNotFound, res.Kind)
	assert.Equal(t, "No snippets found for haskell", res.Text)
}

func TestAnalyzeProjectTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "c.txt"), nil, 0o644))

	res := NewAnalyzeProjectTool().Execute(context.Background(), dir)
	assert.Equal(t, "Project Structure:\n📄 a.txt\n📁 b/\n  📄 c.txt", res.Text)
}

func TestAnalyzeProjectTool_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	res := NewAnalyzeProjectTool().Execute(context.Background(), missing)
	assert.Equal(t, domain.ResultNotFound, res.Kind)
	assert.Equal(t, "Directory '"+missing+"' not found", res.Text)
}

func TestAnalyzeProjectTool_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	res := NewAnalyzeProjectTool().Execute(context.Background(), file)
	assert.True(t, strings.HasPrefix(res.Text, "Failed to analyze project: "), res.Text)
}
