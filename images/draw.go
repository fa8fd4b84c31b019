package images

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/nvr-ai/go-superpoint/matching"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
)

// DrawKeypoints draws every keypoint of kps as a filled circle with a cross
// on a copy of img. Keypoints outside the image are skipped.
//
// Arguments:
//   - img: The source image. It is not modified.
//   - kps: Keypoints in image coordinates.
//   - style: Marker radius and color.
//
// Returns:
//   - image.Image: The annotated copy.
func DrawKeypoints(img image.Image, kps []postprocess.Keypoint, style Style) image.Image {
	dc := gg.NewContextForImage(img)
	for _, k := range kps {
		drawMarker(dc, k, style.Color, style)
	}
	return dc.Image()
}

// DrawScoredKeypoints is DrawKeypoints with the marker's red channel scaled
// by the keypoint score clamped to [0, 1].
func DrawScoredKeypoints(img image.Image, kps []postprocess.Keypoint, style Style) image.Image {
	dc := gg.NewContextForImage(img)
	for _, k := range kps {
		s := math.Min(math.Max(float64(k.Score), 0), 1)
		drawMarker(dc, k, color.RGBA{R: uint8(s * 255), A: 255}, style)
	}
	return dc.Image()
}

// DrawMatches places img1 and img2 side by side, marks the keypoints of both
// and joins every match with a line.
//
// Arguments:
//   - img1, img2: The two images.
//   - kps1, kps2: Keypoints of each image in its own coordinates.
//   - matches: Index pairs into kps1 and kps2. Out of range pairs are skipped.
//   - style: Marker and line style.
//
// Returns:
//   - image.Image: A canvas of width w1+w2 and height max(h1, h2).
func DrawMatches(img1, img2 image.Image, kps1, kps2 []postprocess.Keypoint, matches []matching.Match, style Style) image.Image {
	b1, b2 := img1.Bounds(), img2.Bounds()
	w1 := b1.Dx()
	canvas := imaging.New(w1+b2.Dx(), max(b1.Dy(), b2.Dy()), color.Black)
	canvas = imaging.Paste(canvas, img1, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, img2, image.Pt(w1, 0))

	dc := gg.NewContextForImage(canvas)
	for _, k := range kps1 {
		drawCircle(dc, k, 0, b1.Dx(), b1.Dy(), style.Color, style)
	}
	for _, k := range kps2 {
		drawCircle(dc, k, float64(w1), b2.Dx(), b2.Dy(), style.Color, style)
	}

	dc.SetColor(style.MatchColor)
	dc.SetLineWidth(style.LineWidth)
	for _, m := range matches {
		if m.Query < 0 || m.Query >= len(kps1) || m.Train < 0 || m.Train >= len(kps2) {
			continue
		}
		a, b := kps1[m.Query], kps2[m.Train]
		dc.DrawLine(
			math.Round(float64(a.X)), math.Round(float64(a.Y)),
			math.Round(float64(b.X))+float64(w1), math.Round(float64(b.Y)),
		)
		dc.Stroke()
	}
	return dc.Image()
}

func drawMarker(dc *gg.Context, k postprocess.Keypoint, c color.Color, style Style) {
	if !drawCircle(dc, k, 0, dc.Width(), dc.Height(), c, style) {
		return
	}
	x, y := math.Round(float64(k.X)), math.Round(float64(k.Y))
	size := style.crossSize()
	dc.SetLineWidth(1)
	dc.DrawLine(x-size, y, x+size, y)
	dc.DrawLine(x, y-size, x, y+size)
	dc.Stroke()
}

// drawCircle fills the keypoint circle if the keypoint lies inside a
// width x height image and reports whether it did.
func drawCircle(dc *gg.Context, k postprocess.Keypoint, offset float64, width, height int, c color.Color, style Style) bool {
	x, y := math.Round(float64(k.X)), math.Round(float64(k.Y))
	if x < 0 || y < 0 || x >= float64(width) || y >= float64(height) {
		return false
	}
	dc.SetColor(c)
	dc.DrawCircle(x+offset, y, style.Radius)
	dc.Fill()
	return true
}
