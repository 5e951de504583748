package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		meta, err := Load(filepath.Join(dir, "nope.yml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), meta)
	})

	t.Run("empty path", func(t *testing.T) {
		meta, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/bundle/bundle.js", meta.BundlePath())
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "site.yml")
		require.NoError(t, os.WriteFile(path, []byte("title: My Folio\nkeywords: [photo, design]\n"), 0o600))

		meta, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "My Folio", meta.Title)
		assert.Equal(t, []string{"photo", "design"}, meta.Keywords)
		assert.Equal(t, "/bundle/bundle.js", meta.BundlePath())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("title: [unterminated\n"), 0o600))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
