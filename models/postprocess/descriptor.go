package postprocess

import (
	"github.com/chewxy/math32"
)

// Sampler interpolates descriptors from a coarse descriptor field at heatmap
// grid positions.
type Sampler struct {
	field  DescriptorField
	scaleX float32
	scaleY float32
}

// NewSampler creates a sampler for a field aligned with a heatmap of
// gridWidth x gridHeight cells.
//
// Arguments:
//   - field: The descriptor field. It is read, never modified.
//   - gridWidth: Width of the heatmap grid the sample positions refer to.
//   - gridHeight: Height of the heatmap grid.
//
// Returns:
//   - *Sampler: The sampler.
func NewSampler(field DescriptorField, gridWidth, gridHeight int) *Sampler {
	return &Sampler{
		field:  field,
		scaleX: float32(field.Width) / float32(gridWidth),
		scaleY: float32(field.Height) / float32(gridHeight),
	}
}

// Sample returns the L2-normalized descriptor at heatmap position (x, y).
//
// The position is mapped into the descriptor grid, clamped to its valid range
// and bilinearly interpolated per channel. When the interpolated vector has
// zero norm the zero vector is returned with ok set to false.
func (s *Sampler) Sample(x, y float32) (desc []float32, ok bool) {
	f := s.field
	fx := clamp(x*s.scaleX, 0, float32(f.Width-1))
	fy := clamp(y*s.scaleY, 0, float32(f.Height-1))

	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	x1 := min(x0+1, f.Width-1)
	y1 := min(y0+1, f.Height-1)
	ax := fx - float32(x0)
	ay := fy - float32(y0)

	w00 := (1 - ax) * (1 - ay)
	w10 := ax * (1 - ay)
	w01 := (1 - ax) * ay
	w11 := ax * ay

	plane := f.Height * f.Width
	i00 := y0*f.Width + x0
	i10 := y0*f.Width + x1
	i01 := y1*f.Width + x0
	i11 := y1*f.Width + x1

	desc = make([]float32, f.Channels)
	var norm float32
	for c := range desc {
		p := f.Data[c*plane : (c+1)*plane]
		v := w00*p[i00] + w10*p[i10] + w01*p[i01] + w11*p[i11]
		desc[c] = v
		norm += v * v
	}

	norm = math32.Sqrt(norm)
	if norm == 0 || math32.IsNaN(norm) || math32.IsInf(norm, 0) {
		for c := range desc {
			desc[c] = 0
		}
		return desc, false
	}
	for c := range desc {
		desc[c] /= norm
	}
	return desc, true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
