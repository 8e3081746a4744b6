package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func relPaths(t *testing.T, root string, w *Walker) []string {
	t.Helper()
	files, err := w.Walk(root)
	require.NoError(t, err)
	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(absRoot, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestWalker_Walk(t *testing.T) {
	root := writeTree(t, map[string]string{
		"guide.md":            "# guide",
		"notes/a.txt":         "a",
		"notes/deep/b.md":     "b",
		"node_modules/x/c.md": "c",
		".docrag/index.db":    "db",
		"images/logo.png":     "png",
	})

	t.Run("Should match include globs", func(t *testing.T) {
		w := NewWalker([]string{"**/*.md"}, []string{"node_modules/**"})
		assert.Equal(t, []string{"guide.md", "notes/deep/b.md"}, relPaths(t, root, w))
	})

	t.Run("Should default to all files", func(t *testing.T) {
		w := NewWalker(nil, []string{".docrag/**", "node_modules/**", "**/*.png"})
		assert.Equal(t, []string{"guide.md", "notes/a.txt", "notes/deep/b.md"}, relPaths(t, root, w))
	})

	t.Run("Should report size and mod time", func(t *testing.T) {
		files, err := NewWalker([]string{"guide.md"}, nil).Walk(root)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, int64(len("# guide")), files[0].Size)
		assert.Positive(t, files[0].ModTime)
	})
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		path string
		data []byte
		want string
	}{
		{"markdown by extension", "a.md", []byte("# title\n\ntext"), "text/markdown"},
		{"yaml by extension", "c.yml", []byte("key: value\n"), "application/yaml"},
		{"plain text", "a.txt", []byte("hello world"), "text/plain"},
		{"pdf by magic", "doc.bin", []byte("%PDF-1.4\n%rest"), "application/pdf"},
		{"json", "x.json", []byte(`{"a": 1}`), "application/json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectContentType(tc.path, tc.data))
		})
	}
}

func TestBaseType(t *testing.T) {
	assert.Equal(t, "text/plain", BaseType("text/plain; charset=utf-8"))
	assert.Equal(t, "application/pdf", BaseType(" Application/PDF "))
}
