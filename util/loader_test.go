package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
}

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "frame-10.jpg", "frame-2.png", "b.png", "a.JPEG", "notes.txt", "7.bmp")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o700))

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, img := range images {
		names = append(names, filepath.Base(img.Path))
		assert.Equal(t, filepath.Base(img.Path), string(img.Data))
	}
	assert.Equal(t, []string{"frame-2.png", "7.bmp", "frame-10.jpg", "a.JPEG", "b.png"}, names)
	assert.Equal(t, 2, images[0].Frame)
	assert.Equal(t, -1, images[3].Frame)
}

func TestLoadDirectoryImagesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to read directory")
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("x.PNG"))
	assert.True(t, IsImage("dir/y.jpeg"))
	assert.False(t, IsImage("z.gif"))
	assert.False(t, IsImage("noext"))
}
