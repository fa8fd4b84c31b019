package images

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
)

var (
	heatLow  = colorful.Color{R: 0, G: 0, B: 1}
	heatMid  = colorful.Color{R: 0, G: 1, B: 0}
	heatHigh = colorful.Color{R: 1, G: 0, B: 0}
)

// HeatmapImage renders a probability grid with a blue to green to red
// colormap after min/max normalization. A flat grid renders as mid-scale
// green.
func HeatmapImage(h postprocess.Heatmap) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, h.Width, h.Height))
	if len(h.Data) == 0 {
		return img
	}

	lo, hi := h.Data[0], h.Data[0]
	for _, v := range h.Data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo

	for i, v := range h.Data {
		if i >= h.Width*h.Height {
			break
		}
		t := 0.5
		if span > 0 {
			t = float64((v - lo) / span)
		}
		img.Set(i%h.Width, i/h.Width, HeatColor(t))
	}
	return img
}

// HeatColor maps t in [0, 1] onto the heatmap colormap. Values outside the
// range are clamped.
func HeatColor(t float64) color.RGBA {
	t = min(max(t, 0), 1)
	var c colorful.Color
	if t < 0.5 {
		c = heatLow.BlendRgb(heatMid, t*2)
	} else {
		c = heatMid.BlendRgb(heatHigh, (t-0.5)*2)
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
