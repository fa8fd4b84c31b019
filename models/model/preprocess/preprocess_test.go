package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestPreprocessSuperPoint validates the full path from PNG bytes to a
// normalized single channel tensor.
func TestPreprocessSuperPoint(t *testing.T) {
	p := NewPreprocessor(GetSuperPointConfig(32, 24))
	data := encodePNG(t, uniformImage(64, 48, color.White))

	result, err := p.Preprocess(&Image{Format: ImageFormatPNG, Data: data})

	require.NoError(t, err, "preprocessing should succeed with valid input")
	assert.Equal(t, []int64{1, 1, 24, 32}, result.Shape)
	assert.Len(t, result.Data, 32*24, "tensor data size should match shape")
	assert.Equal(t, image.Point{X: 64, Y: 48}, result.OriginalSize, "original size should be preserved")
	for _, v := range result.Data {
		assert.InDelta(t, 1.0, v, 1e-3, "white pixels normalize to one")
	}
}

func TestPreprocessNormalization(t *testing.T) {
	gray := color.RGBA{R: 51, G: 51, B: 51, A: 255}

	tests := []struct {
		name string
		norm NormalizationType
		want float32
	}{
		{"none", NormalizeNone, 51},
		{"zero to one", NormalizeZeroToOne, 0.2},
		{"minus one to one", NormalizeMinusOneToOne, 51/127.5 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetSuperPointConfig(8, 8)
			cfg.NormalizationType = tt.norm
			p := NewPreprocessor(cfg)

			result, err := p.PreprocessImage(uniformImage(8, 8, gray))

			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.Data[0], 1e-3)
			assert.InDelta(t, tt.want, result.Data[len(result.Data)-1], 1e-3)
		})
	}
}

func TestPreprocessLuminance(t *testing.T) {
	p := NewPreprocessor(&ModelConfig{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeNone})
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	result, err := p.PreprocessImage(img)

	require.NoError(t, err)
	assert.InDelta(t, 0.299*255, result.Data[0], 1e-3)
	assert.InDelta(t, 0.114*255, result.Data[1], 1e-3)
}

func TestPreprocessErrors(t *testing.T) {
	p := NewPreprocessor(GetSuperPointConfig(8, 8))

	_, err := p.Preprocess(nil)
	assert.Error(t, err, "nil image should be rejected")

	_, err = p.Preprocess(&Image{Format: ImageFormatJPEG})
	assert.Error(t, err, "empty data should be rejected")

	_, err = p.Preprocess(&Image{Format: ImageFormatJPEG, Data: []byte("not an image")})
	assert.ErrorContains(t, err, "image decoding failed")

	_, err = p.PreprocessImage(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err, "empty bounds should be rejected")

	bad := NewPreprocessor(GetSuperPointConfig(0, 8))
	_, err = bad.PreprocessImage(uniformImage(4, 4, color.Black))
	assert.ErrorContains(t, err, "invalid input size")
}

func TestBatchPreprocess(t *testing.T) {
	p := NewPreprocessor(GetSuperPointConfig(16, 16))
	batch := []image.Image{
		uniformImage(10, 10, color.Black),
		uniformImage(20, 30, color.White),
		uniformImage(16, 16, color.Black),
	}

	results, err := p.BatchPreprocess(batch, 2)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, image.Point{X: 20, Y: 30}, results[1].OriginalSize, "results keep input order")
	assert.InDelta(t, 1.0, results[1].Data[0], 1e-3)

	_, err = p.BatchPreprocess([]image.Image{uniformImage(4, 4, color.Black), nil}, 0)
	assert.ErrorContains(t, err, "image 1")
}
