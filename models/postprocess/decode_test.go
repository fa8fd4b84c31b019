package postprocess

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	h := gridWith(4, 3, map[[2]int]float32{
		{0, 0}: 0.9, // corner cell
		{2, 1}: 0.5, // exactly at threshold
		{3, 2}: 0.49,
		{1, 2}: 0.7,
	})

	got := Decode(h, 0.5, 0)

	assert.Equal(t, []Candidate{
		{X: 0, Y: 0, Score: 0.9},
		{X: 2, Y: 1, Score: 0.5},
		{X: 1, Y: 2, Score: 0.7},
	}, got, "decode should keep cells >= threshold in row-major order")
}

func TestDecodeBelowThresholdIsEmpty(t *testing.T) {
	h := gridWith(5, 5, map[[2]int]float32{{2, 2}: 0.5})

	got := Decode(h, 0.99, 0)

	require.NotNil(t, got, "an empty decode is a valid result, not nil")
	assert.Empty(t, got)
}

func TestDecodeMargin(t *testing.T) {
	h := randomGrid(7, 10, 8)

	got := Decode(h, 0, 2)

	require.Len(t, got, (10-4)*(8-4), "every interior cell passes a zero threshold")
	for _, c := range got {
		assert.True(t, c.X >= 2 && c.X < 8 && c.Y >= 2 && c.Y < 6, "candidate %v inside the margin", c)
	}
}

func TestDecodeSkipsNaN(t *testing.T) {
	h := gridWith(2, 2, map[[2]int]float32{{1, 1}: math32.NaN(), {0, 1}: 0.3})

	got := Decode(h, 0.1, 0)

	assert.Equal(t, []Candidate{{X: 0, Y: 1, Score: 0.3}}, got)
}

func TestDecodeRowsCoversGrid(t *testing.T) {
	h := randomGrid(3, 9, 7)
	want := Decode(h, 0.4, 1)

	var got []Candidate
	for y := 0; y < h.Height; y += 2 {
		got = append(got, DecodeRows(h, 0.4, 1, y, y+2)...)
	}

	assert.Equal(t, want, got, "decoding row ranges back to back should equal a full decode")
}
