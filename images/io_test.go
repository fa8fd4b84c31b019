package images

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	src := blackImage(12, 8)
	src.Set(3, 4, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	path := filepath.Join(t.TempDir(), "frame.png")

	require.NoError(t, Save(path, src))
	got, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 8), got.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, rgbaAt(got, 3, 4))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "failed to open")

	err = Save(filepath.Join(t.TempDir(), "frame.unknown"), blackImage(2, 2))
	assert.ErrorContains(t, err, "failed to save")
}

func TestWriteReadMat(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "red.png")

	require.NoError(t, WriteMat(path, src))

	colored, err := ReadMat(path, false)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), colored.Bounds())
	c := rgbaAt(colored, 5, 5)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(0), c.B, "channel order survives the round trip")

	gray, err := ReadMat(path, true)
	require.NoError(t, err)
	assert.InDelta(t, 76, int(rgbaAt(gray, 5, 5).R), 2, "grayscale uses luminance weights")

	_, err = ReadMat(filepath.Join(t.TempDir(), "missing.png"), true)
	assert.Error(t, err)
}
