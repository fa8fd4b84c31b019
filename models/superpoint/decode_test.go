package superpoint

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

const channels = CellSize*CellSize + 1

// semiWith returns a [1, 65, hc, wc] tensor whose logits are zero except for
// the given (row, col, channel) entries.
func semiWith(hc, wc int, logits map[[3]int]float32) *tensor.Dense {
	data := make([]float32, channels*hc*wc)
	for k, v := range logits {
		data[k[2]*hc*wc+k[0]*wc+k[1]] = v
	}
	return tensor.New(tensor.WithShape(1, channels, hc, wc), tensor.WithBacking(data))
}

func TestDecodeSemiDepthToSpace(t *testing.T) {
	// Cell (row 1, col 2), channel 3*8+5 lands on pixel (2*8+5, 1*8+3).
	semi := semiWith(2, 3, map[[3]int]float32{{1, 2, 29}: 20})

	h, err := DecodeSemi(semi, CellSize)

	require.NoError(t, err)
	assert.Equal(t, 24, h.Width)
	assert.Equal(t, 16, h.Height)
	assert.Greater(t, h.At(21, 11), float32(0.99))
	assert.Equal(t, h.At(21, 11), h.Max(), "the hot channel is the global maximum")
	assert.InDelta(t, 1.0/65, h.At(0, 0), 1e-6, "untouched cells are uniform")
}

func TestDecodeSemiEveryChannel(t *testing.T) {
	for c := 0; c < CellSize*CellSize; c++ {
		semi := semiWith(1, 1, map[[3]int]float32{{0, 0, c}: 30})

		h, err := DecodeSemi(semi, CellSize)
		require.NoError(t, err)

		dy, dx := c/CellSize, c%CellSize
		require.Greater(t, h.At(dx, dy), float32(0.99), "channel %d", c)
	}
}

func TestDecodeSemiDustbin(t *testing.T) {
	semi := semiWith(2, 2, map[[3]int]float32{
		{0, 0, 64}: 50,
		{0, 1, 64}: 50,
		{1, 0, 64}: 50,
		{1, 1, 64}: 50,
	})

	h, err := DecodeSemi(semi, CellSize)

	require.NoError(t, err)
	assert.Less(t, h.Max(), float32(1e-6), "a confident dustbin leaves no keypoint mass")
}

// TestDecodeSemiStable checks that very large logits do not overflow.
func TestDecodeSemiStable(t *testing.T) {
	semi := semiWith(1, 2, map[[3]int]float32{{0, 0, 0}: 5000, {0, 0, 1}: 5000, {0, 1, 7}: -5000})

	h, err := DecodeSemi(semi, CellSize)

	require.NoError(t, err)
	for _, v := range h.Data {
		require.False(t, math32.IsNaN(v) || math32.IsInf(v, 0))
	}
	assert.InDelta(t, 0.5, h.At(0, 0), 1e-6)
	assert.InDelta(t, 0.5, h.At(1, 0), 1e-6)
}

func TestDecodeSemiUnbatched(t *testing.T) {
	data := make([]float32, channels*2*2)
	semi := tensor.New(tensor.WithShape(channels, 2, 2), tensor.WithBacking(data))

	h, err := DecodeSemi(semi, CellSize)

	require.NoError(t, err)
	assert.Equal(t, 16, h.Width)
	assert.Len(t, h.Data, 16*16)
}

func TestDecodeSemiErrors(t *testing.T) {
	tests := []struct {
		name string
		semi tensor.Tensor
	}{
		{"nil", nil},
		{"too few channels", tensor.New(tensor.WithShape(1, 64, 2, 2), tensor.WithBacking(make([]float32, 64*4)))},
		{"matrix", tensor.New(tensor.WithShape(65, 4), tensor.WithBacking(make([]float32, 65*4)))},
		{"batch of two", tensor.New(tensor.WithShape(2, 65, 1, 1), tensor.WithBacking(make([]float32, 130)))},
		{"float64", tensor.New(tensor.WithShape(65, 1, 1), tensor.WithBacking(make([]float64, 65)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSemi(tt.semi, CellSize)

			var dimErr *postprocess.DimensionMismatchError
			assert.True(t, errors.As(err, &dimErr), "got %v", err)
		})
	}

	_, err := DecodeSemi(semiWith(1, 1, nil), 0)
	var cfgErr *postprocess.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "a zero cell size is a configuration error")
}

func TestDecodeDescriptors(t *testing.T) {
	data := make([]float32, 4*2*3)
	data[1*6+1*3+2] = 7 // channel 1, row 1, col 2
	desc := tensor.New(tensor.WithShape(1, 4, 2, 3), tensor.WithBacking(data))

	f, err := DecodeDescriptors(desc)

	require.NoError(t, err)
	assert.Equal(t, 4, f.Channels)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, []float32{0, 7, 0, 0}, f.Vector(2, 1))
}
