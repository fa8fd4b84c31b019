package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestHeatmapFromTensor(t *testing.T) {
	data := []float32{0, 1, 2, 3, 4, 5}

	for _, shape := range [][]int{{2, 3}, {1, 2, 3}, {1, 1, 2, 3}} {
		tt := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(append([]float32(nil), data...)))

		h, err := HeatmapFromTensor(tt)

		require.NoError(t, err, "shape %v", shape)
		assert.Equal(t, 3, h.Width)
		assert.Equal(t, 2, h.Height)
		assert.Equal(t, float32(5), h.At(2, 1))
	}
}

func TestHeatmapFromTensorRejects(t *testing.T) {
	tests := []struct {
		name string
		t    tensor.Tensor
	}{
		{"nil", nil},
		{"float64", tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 2, 3, 4}))},
		{"batch of two", tensor.New(tensor.WithShape(2, 1, 2), tensor.WithBacking([]float32{1, 2, 3, 4}))},
		{"vector", tensor.New(tensor.WithShape(4), tensor.WithBacking([]float32{1, 2, 3, 4}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HeatmapFromTensor(tt.t)

			var dimErr *DimensionMismatchError
			assert.True(t, errors.As(err, &dimErr), "got %v", err)
		})
	}
}

func TestHeatmapFromSlicedTensor(t *testing.T) {
	backing := make([]float32, 4*3)
	for i := range backing {
		backing[i] = float32(i)
	}
	tt := tensor.New(tensor.WithShape(4, 3), tensor.WithBacking(backing))
	rows, err := tt.Slice(tensor.S(1, 3))
	require.NoError(t, err)

	h, err := HeatmapFromTensor(rows)

	require.NoError(t, err)
	assert.Equal(t, 3, h.Width)
	assert.Equal(t, 2, h.Height)
	assert.Equal(t, []float32{3, 4, 5, 6, 7, 8}, h.Data)
}

func TestDescriptorFieldFromTensor(t *testing.T) {
	backing := make([]float32, 2*3*4)
	for i := range backing {
		backing[i] = float32(i)
	}

	for _, shape := range [][]int{{2, 3, 4}, {1, 2, 3, 4}} {
		tt := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(append([]float32(nil), backing...)))

		f, err := DescriptorFieldFromTensor(tt)

		require.NoError(t, err, "shape %v", shape)
		assert.Equal(t, 2, f.Channels)
		assert.Equal(t, 3, f.Height)
		assert.Equal(t, 4, f.Width)
		assert.Equal(t, []float32{5, 17}, f.Vector(1, 1))
	}

	_, err := DescriptorFieldFromTensor(tensor.New(tensor.WithShape(6, 4), tensor.WithBacking(backing)))
	var dimErr *DimensionMismatchError
	assert.True(t, errors.As(err, &dimErr), "a 2-D tensor is not a descriptor field")
}
