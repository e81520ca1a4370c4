package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	return root
}

func TestRender_Basic(t *testing.T) {
	root := mkTree(t, "a.txt", "b/c.txt")
	got, err := Render(root)
	require.NoError(t, err)

	want := "Project Structure:\n📄 a.txt\n📁 b/\n  📄 c.txt"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestLines_SkipsHiddenAndCaches(t *testing.T) {
	root := mkTree(t,
		".git/HEAD",
		".env",
		"__pycache__/x.pyc",
		"pkg/__pycache__/y.pyc",
		"pkg/mod.py",
		"main.py",
	)
	got, err := Lines(root)
	require.NoError(t, err)

	want := []string{"📄 main.py", "📁 pkg/", "  📄 mod.py"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestLines_SortedAndNested(t *testing.T) {
	root := mkTree(t, "z.go", "a/b/c/d.go", "a/b/e.go", "m.go")
	got, err := Lines(root)
	require.NoError(t, err)

	want := []string{
		"📁 a/",
		"  📁 b/",
		"    📁 c/",
		"      📄 d.go",
		"    📄 e.go",
		"📄 m.go",
		"📄 z.go",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_EmptyDir(t *testing.T) {
	got, err := Render(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "Project Structure:\n", got)
}

func TestRender_Missing(t *testing.T) {
	_, err := Render(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRender_FileInsteadOfDir(t *testing.T) {
	root := mkTree(t, "plain.txt")
	_, err := Render(filepath.Join(root, "plain.txt"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSkip(t *testing.T) {
	assert.True(t, Skip(".hidden"))
	assert.True(t, Skip("__pycache__"))
	assert.False(t, Skip("src"))
}
