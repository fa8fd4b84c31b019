// Package images - Keypoint visualization and image I/O.
package images

import (
	"image/color"
)

// Style controls how keypoints and matches are drawn.
type Style struct {
	// Radius of the filled keypoint circle in pixels.
	Radius float64 `json:"circle_radius" yaml:"circle_radius"`
	// Color of keypoint markers.
	Color color.RGBA `json:"circle_color" yaml:"circle_color"`
	// LineWidth of match lines in pixels.
	LineWidth float64 `json:"line_thickness" yaml:"line_thickness"`
	// MatchColor of match lines.
	MatchColor color.RGBA `json:"match_color" yaml:"match_color"`
}

// DefaultStyle returns red markers of radius 3 and green match lines of width 2.
func DefaultStyle() Style {
	return Style{
		Radius:     3,
		Color:      color.RGBA{R: 255, A: 255},
		LineWidth:  2,
		MatchColor: color.RGBA{G: 255, A: 255},
	}
}

// crossSize is the half length of the cross drawn over each marker.
func (s Style) crossSize() float64 {
	return max(1, float64(int(s.Radius)/2))
}
