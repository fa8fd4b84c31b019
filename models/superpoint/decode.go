// Package superpoint - decodes SuperPoint network outputs into postprocess inputs.
package superpoint

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// CellSize is the side of the pixel cell covered by one detector output
// position.
const CellSize = 8

// DecodeSemi converts the raw detector head into a full resolution
// probability heatmap.
//
// The head has cell*cell+1 channels per cell position: one per pixel of the
// cell plus a trailing "no keypoint" dustbin. A softmax is taken across the
// channels, the dustbin is dropped and the remaining channels are rearranged
// depth-to-space so that channel dy*cell+dx becomes pixel (x*cell+dx, y*cell+dy).
//
// Arguments:
//   - semi: The detector tensor, [cell²+1, Hc, Wc] or [1, cell²+1, Hc, Wc].
//   - cell: The cell size, normally CellSize.
//
// Returns:
//   - postprocess.Heatmap: The [Hc·cell, Wc·cell] probability grid.
//   - error: A *postprocess.DimensionMismatchError for unexpected shapes.
func DecodeSemi(semi tensor.Tensor, cell int) (postprocess.Heatmap, error) {
	if cell <= 0 {
		return postprocess.Heatmap{}, &postprocess.ConfigurationError{Field: "cell", Value: cell, Reason: "must be > 0"}
	}
	data, shape, err := float32Data(semi, "semi")
	if err != nil {
		return postprocess.Heatmap{}, err
	}
	if len(shape) == 4 && shape[0] == 1 {
		shape = shape[1:]
	}
	depth := cell * cell
	if len(shape) != 3 || shape[0] != depth+1 || shape[1] <= 0 || shape[2] <= 0 {
		return postprocess.Heatmap{}, &postprocess.DimensionMismatchError{
			Tensor: "semi",
			Want:   fmt.Sprintf("[%d Hc Wc]", depth+1),
			Got:    fmt.Sprint(semi.Shape()),
		}
	}
	hc, wc := shape[1], shape[2]
	plane := hc * wc

	probs := make([]float32, depth*plane)
	for i := 0; i < plane; i++ {
		m := data[i]
		for c := 1; c <= depth; c++ {
			if v := data[c*plane+i]; v > m {
				m = v
			}
		}
		var sum float32
		for c := 0; c <= depth; c++ {
			sum += math32.Exp(data[c*plane+i] - m)
		}
		for c := 0; c < depth; c++ {
			probs[c*plane+i] = math32.Exp(data[c*plane+i]-m) / sum
		}
	}

	grid, err := depthToSpace(probs, cell, hc, wc)
	if err != nil {
		return postprocess.Heatmap{}, err
	}
	return postprocess.NewHeatmap(wc*cell, hc*cell, grid), nil
}

// depthToSpace rearranges [cell, cell, Hc, Wc] into [Hc·cell, Wc·cell].
func depthToSpace(probs []float32, cell, hc, wc int) ([]float32, error) {
	t := tensor.New(tensor.WithShape(cell, cell, hc, wc), tensor.WithBacking(probs))
	if err := t.T(2, 0, 3, 1); err != nil {
		return nil, errors.Wrap(err, "permute cells")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "transpose cells")
	}
	if err := t.Reshape(hc*cell, wc*cell); err != nil {
		return nil, errors.Wrap(err, "reshape heatmap")
	}
	return t.Data().([]float32), nil
}

// DecodeDescriptors converts the raw descriptor head into a descriptor field.
//
// Arguments:
//   - desc: The descriptor tensor, [C, Hc, Wc] or [1, C, Hc, Wc].
//
// Returns:
//   - postprocess.DescriptorField: The coarse descriptor grid.
//   - error: A *postprocess.DimensionMismatchError for unexpected shapes.
func DecodeDescriptors(desc tensor.Tensor) (postprocess.DescriptorField, error) {
	return postprocess.DescriptorFieldFromTensor(desc)
}

func float32Data(t tensor.Tensor, name string) ([]float32, []int, error) {
	if t == nil {
		return nil, nil, &postprocess.DimensionMismatchError{Tensor: name, Want: "tensor", Got: "nil"}
	}
	if d, ok := t.(*tensor.Dense); ok && d.IsMaterializable() {
		t = d.Materialize()
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, nil, &postprocess.DimensionMismatchError{Tensor: name, Want: "float32 data", Got: t.Dtype().String()}
	}
	return data, append([]int(nil), t.Shape()...), nil
}
