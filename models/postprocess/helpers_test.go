package postprocess

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"
)

// gridWith returns a width x height heatmap with the given cells set.
func gridWith(width, height int, cells map[[2]int]float32) Heatmap {
	data := make([]float32, width*height)
	for xy, v := range cells {
		data[xy[1]*width+xy[0]] = v
	}
	return NewHeatmap(width, height, data)
}

// randomGrid returns a heatmap filled with uniform random scores.
func randomGrid(seed int64, width, height int) Heatmap {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, width*height)
	for i := range data {
		data[i] = rng.Float32()
	}
	return NewHeatmap(width, height, data)
}

// randomField returns a descriptor field with non-zero random values.
func randomField(seed int64, channels, height, width int) DescriptorField {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, channels*height*width)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return NewDescriptorField(channels, height, width, data)
}

// onesField returns a field whose every entry is one.
func onesField(channels, height, width int) DescriptorField {
	data := make([]float32, channels*height*width)
	for i := range data {
		data[i] = 1
	}
	return NewDescriptorField(channels, height, width, data)
}

func requireUnitNorm(t *testing.T, v []float32) {
	t.Helper()
	var n float32
	for _, x := range v {
		n += x * x
	}
	require.InDelta(t, 1.0, float64(math32.Sqrt(n)), 1e-5, "descriptor should have unit norm")
}

func requireSpaced(t *testing.T, kept []Candidate, radius float32) {
	t.Helper()
	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			require.GreaterOrEqual(t, dist2(kept[i], kept[j]), radius*radius,
				"kept candidates %v and %v are closer than the radius", kept[i], kept[j])
		}
	}
}
