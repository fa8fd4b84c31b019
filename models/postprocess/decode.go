package postprocess

// Decode returns every cell of the heatmap whose score is >= threshold, in
// row-major order. Cells closer than margin to the border are skipped.
//
// Arguments:
//   - h: The probability grid.
//   - threshold: The minimum score.
//   - margin: The border margin in cells. Zero keeps border cells.
//
// Returns:
//   - []Candidate: The candidates. Empty (not nil) when nothing passes.
func Decode(h Heatmap, threshold float32, margin int) []Candidate {
	return DecodeRows(h, threshold, margin, 0, h.Height)
}

// DecodeRows decodes the rows [y0, y1) of the heatmap.
func DecodeRows(h Heatmap, threshold float32, margin, y0, y1 int) []Candidate {
	if y0 < margin {
		y0 = margin
	}
	if y1 > h.Height-margin {
		y1 = h.Height - margin
	}
	x0, x1 := margin, h.Width-margin

	out := make([]Candidate, 0)
	for y := y0; y < y1; y++ {
		row := h.Data[y*h.Width : (y+1)*h.Width]
		for x := x0; x < x1; x++ {
			// NaN fails this comparison.
			if s := row[x]; s >= threshold {
				out = append(out, Candidate{X: x, Y: y, Score: s})
			}
		}
	}
	return out
}
