package postprocess

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Heatmap is a dense row-major probability grid of Height rows by Width columns.
type Heatmap struct {
	Width  int
	Height int
	Data   []float32
}

// NewHeatmap wraps data as a heatmap without copying it.
func NewHeatmap(width, height int, data []float32) Heatmap {
	return Heatmap{Width: width, Height: height, Data: data}
}

// At returns the score of cell (x, y).
func (h Heatmap) At(x, y int) float32 {
	return h.Data[y*h.Width+x]
}

// Max returns the highest score in the grid, or 0 for an empty grid.
func (h Heatmap) Max() float32 {
	var m float32
	for i, v := range h.Data {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

func (h Heatmap) validate() error {
	if h.Width <= 0 || h.Height <= 0 {
		return &DimensionMismatchError{
			Tensor: "heatmap",
			Want:   "positive width and height",
			Got:    fmt.Sprintf("%dx%d", h.Width, h.Height),
		}
	}
	if len(h.Data) != h.Width*h.Height {
		return &DimensionMismatchError{
			Tensor: "heatmap",
			Want:   fmt.Sprintf("%d values (%dx%d)", h.Width*h.Height, h.Width, h.Height),
			Got:    fmt.Sprintf("%d values", len(h.Data)),
		}
	}
	return nil
}

// DescriptorField is a dense channel-major (C x H x W) descriptor grid.
type DescriptorField struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// NewDescriptorField wraps data as a descriptor field without copying it.
func NewDescriptorField(channels, height, width int, data []float32) DescriptorField {
	return DescriptorField{Channels: channels, Height: height, Width: width, Data: data}
}

// Vector copies the raw descriptor stored at cell (x, y).
func (f DescriptorField) Vector(x, y int) []float32 {
	out := make([]float32, f.Channels)
	plane := f.Height * f.Width
	for c := range out {
		out[c] = f.Data[c*plane+y*f.Width+x]
	}
	return out
}

func (f DescriptorField) validate() error {
	if f.Channels <= 0 {
		return &ConfigurationError{
			Field:  "descriptor_channels",
			Value:  f.Channels,
			Reason: "descriptor field must have at least one channel",
		}
	}
	if f.Width <= 0 || f.Height <= 0 {
		return &DimensionMismatchError{
			Tensor: "descriptors",
			Want:   "positive width and height",
			Got:    fmt.Sprintf("%dx%d", f.Width, f.Height),
		}
	}
	if want := f.Channels * f.Height * f.Width; len(f.Data) != want {
		return &DimensionMismatchError{
			Tensor: "descriptors",
			Want:   fmt.Sprintf("%d values (%dx%dx%d)", want, f.Channels, f.Height, f.Width),
			Got:    fmt.Sprintf("%d values", len(f.Data)),
		}
	}
	return nil
}

// checkCompatible verifies that the descriptor grid matches the heatmap grid
// for the given stride. A zero stride only requires the descriptor grid to be
// no larger than the heatmap.
func checkCompatible(h Heatmap, f DescriptorField, stride int) error {
	if stride > 0 {
		if f.Width*stride != h.Width || f.Height*stride != h.Height {
			return &DimensionMismatchError{
				Tensor: "descriptors",
				Want:   fmt.Sprintf("%dx%d grid (heatmap %dx%d / stride %d)", h.Width/stride, h.Height/stride, h.Width, h.Height, stride),
				Got:    fmt.Sprintf("%dx%d grid", f.Width, f.Height),
			}
		}
		return nil
	}
	if f.Width > h.Width || f.Height > h.Height {
		return &DimensionMismatchError{
			Tensor: "descriptors",
			Want:   fmt.Sprintf("grid no larger than heatmap %dx%d", h.Width, h.Height),
			Got:    fmt.Sprintf("%dx%d grid", f.Width, f.Height),
		}
	}
	return nil
}

// HeatmapFromTensor converts a float32 tensor of shape [H,W], [1,H,W] or
// [1,1,H,W] into a Heatmap.
//
// Arguments:
//   - t: The probability tensor.
//
// Returns:
//   - Heatmap: The heatmap sharing the tensor's backing data.
//   - error: A DimensionMismatchError for unexpected shapes or types.
func HeatmapFromTensor(t tensor.Tensor) (Heatmap, error) {
	data, shape, err := float32Backing(t, "heatmap")
	if err != nil {
		return Heatmap{}, err
	}
	for len(shape) > 2 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return Heatmap{}, &DimensionMismatchError{Tensor: "heatmap", Want: "[H W]", Got: fmt.Sprint(t.Shape())}
	}
	h := NewHeatmap(shape[1], shape[0], data)
	return h, h.validate()
}

// DescriptorFieldFromTensor converts a float32 tensor of shape [C,H,W] or
// [1,C,H,W] into a DescriptorField.
func DescriptorFieldFromTensor(t tensor.Tensor) (DescriptorField, error) {
	data, shape, err := float32Backing(t, "descriptors")
	if err != nil {
		return DescriptorField{}, err
	}
	if len(shape) == 4 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 3 {
		return DescriptorField{}, &DimensionMismatchError{Tensor: "descriptors", Want: "[C H W]", Got: fmt.Sprint(t.Shape())}
	}
	f := NewDescriptorField(shape[0], shape[1], shape[2], data)
	return f, f.validate()
}

func float32Backing(t tensor.Tensor, name string) ([]float32, []int, error) {
	if t == nil {
		return nil, nil, &DimensionMismatchError{Tensor: name, Want: "tensor", Got: "nil"}
	}
	if d, ok := t.(*tensor.Dense); ok && d.IsMaterializable() {
		t = d.Materialize()
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, nil, &DimensionMismatchError{Tensor: name, Want: "float32 data", Got: t.Dtype().String()}
	}
	shape := append([]int(nil), t.Shape()...)
	return data, shape, nil
}
