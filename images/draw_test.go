package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-superpoint/matching"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blackImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestDrawKeypoints(t *testing.T) {
	src := blackImage(32, 24)
	kps := []postprocess.Keypoint{{X: 10, Y: 10, Score: 0.9}}

	out := DrawKeypoints(src, kps, DefaultStyle())

	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(out, 10, 10), "marker center is filled")
	assert.Equal(t, color.RGBA{A: 255}, rgbaAt(out, 25, 20), "pixels away from markers are untouched")
	assert.Equal(t, color.RGBA{A: 255}, rgbaAt(src, 10, 10), "the source image is not modified")
}

func TestDrawKeypointsSkipsOutside(t *testing.T) {
	src := blackImage(16, 16)
	kps := []postprocess.Keypoint{{X: -4, Y: 3}, {X: 16, Y: 2}, {X: 5, Y: 40}}

	out := DrawKeypoints(src, kps, DefaultStyle())

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			require.Equal(t, color.RGBA{A: 255}, rgbaAt(out, x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestDrawScoredKeypoints(t *testing.T) {
	src := blackImage(32, 32)
	kps := []postprocess.Keypoint{{X: 8, Y: 8, Score: 0.5}, {X: 24, Y: 24, Score: 3}}

	out := DrawScoredKeypoints(src, kps, DefaultStyle())

	assert.InDelta(t, 127, int(rgbaAt(out, 8, 8).R), 1, "half score gives half intensity")
	assert.Equal(t, uint8(255), rgbaAt(out, 24, 24).R, "scores above one are clamped")
}

func TestDrawMatches(t *testing.T) {
	img1 := blackImage(20, 10)
	img2 := blackImage(30, 16)
	kps1 := []postprocess.Keypoint{{X: 5, Y: 5}}
	kps2 := []postprocess.Keypoint{{X: 10, Y: 5}}
	matches := []matching.Match{{Query: 0, Train: 0}, {Query: 3, Train: 0}}

	out := DrawMatches(img1, img2, kps1, kps2, matches, DefaultStyle())

	assert.Equal(t, image.Rect(0, 0, 50, 16), out.Bounds())
	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgbaAt(out, 17, 5), "match line crosses the seam")
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(out, 30, 6), "second image keypoints are offset by the first width")
	assert.Equal(t, uint8(0), rgbaAt(out, 40, 14).R, "padding below the shorter image stays black")
}

func TestHeatmapImage(t *testing.T) {
	h := postprocess.NewHeatmap(3, 1, []float32{0, 0.5, 1})

	img := HeatmapImage(h)

	require.Equal(t, image.Rect(0, 0, 3, 1), img.Bounds())
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(2, 0))
}

func TestHeatmapImageFlat(t *testing.T) {
	h := postprocess.NewHeatmap(2, 2, []float32{0.1, 0.1, 0.1, 0.1})

	img := HeatmapImage(h)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(x, y))
		}
	}
}

func TestHeatColorClamps(t *testing.T) {
	assert.Equal(t, HeatColor(0), HeatColor(-3))
	assert.Equal(t, HeatColor(1), HeatColor(7))
	mid := HeatColor(0.25)
	assert.InDelta(t, 128, int(mid.G), 1)
	assert.InDelta(t, 128, int(mid.B), 1)
}
