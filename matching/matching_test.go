package matching

import (
	"testing"

	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func kp(desc ...float32) postprocess.Keypoint {
	return postprocess.Keypoint{Descriptor: desc}
}

func TestDistances(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0, 0, 3, 4})
	b := mat.NewDense(3, 2, []float64{0, 0, 3, 0, 6, 8})

	d := Distances(a, b)

	want := mat.NewDense(2, 3, []float64{
		0, 3, 10,
		5, 4, 5,
	})
	assert.True(t, mat.EqualApprox(want, d, 1e-9), "got %v", mat.Formatted(d))
}

func TestMatchNearestNeighbour(t *testing.T) {
	kps1 := []postprocess.Keypoint{kp(1, 0), kp(0, 1)}
	kps2 := []postprocess.Keypoint{kp(0, 1), kp(0.9, 0.1), kp(-1, 0)}

	got, err := MatchKeypoints(kps1, kps2, Config{})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Query, "the exact pair sorts first")
	assert.Equal(t, 0, got[0].Train)
	assert.Equal(t, 0, got[1].Query)
	assert.Equal(t, 1, got[1].Train)
	assert.InDelta(t, 0.1414, got[1].Distance, 1e-3)
}

func TestMatchCrossCheck(t *testing.T) {
	// Both queries prefer train 0, but train 0 prefers query 0.
	kps1 := []postprocess.Keypoint{kp(1, 0), kp(0.8, 0.6)}
	kps2 := []postprocess.Keypoint{kp(1, 0), kp(-1, 0)}

	loose, err := MatchKeypoints(kps1, kps2, Config{})
	require.NoError(t, err)
	assert.Len(t, loose, 2)

	strict, err := MatchKeypoints(kps1, kps2, Config{CrossCheck: true})
	require.NoError(t, err)
	assert.Equal(t, []Match{{Query: 0, Train: 0, Distance: 0}}, strict)
}

func TestMatchFilters(t *testing.T) {
	kps1 := []postprocess.Keypoint{kp(1, 0), kp(0, 1)}
	kps2 := []postprocess.Keypoint{kp(1, 0), kp(0.6, 0.8)}

	tests := []struct {
		name   string
		config Config
		want   int
	}{
		{"no filter", Config{}, 2},
		{"distance gate", Config{MaxDistance: 0.5}, 1},
		{"ratio", Config{Ratio: 0.4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchKeypoints(kps1, kps2, tt.config)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestMatchSkipsDegenerate(t *testing.T) {
	zero := postprocess.Keypoint{Descriptor: []float32{0, 0}, Degenerate: true}
	kps1 := []postprocess.Keypoint{zero, kp(1, 0)}
	kps2 := []postprocess.Keypoint{zero, kp(1, 0)}

	got, err := MatchKeypoints(kps1, kps2, Config{CrossCheck: true})

	require.NoError(t, err)
	assert.Equal(t, []Match{{Query: 1, Train: 1, Distance: 0}}, got, "indices refer to the original slices")

	got, err = MatchKeypoints([]postprocess.Keypoint{zero}, kps2, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatchErrors(t *testing.T) {
	_, err := MatchKeypoints([]postprocess.Keypoint{kp(1, 0)}, []postprocess.Keypoint{kp(1, 0, 0)}, Config{})
	assert.ErrorContains(t, err, "train keypoints")

	_, err = MatchKeypoints([]postprocess.Keypoint{kp(1, 0), kp(1)}, nil, Config{})
	assert.ErrorContains(t, err, "query keypoints")

	_, err = MatchKeypoints(nil, nil, Config{Ratio: 1.5})
	assert.ErrorContains(t, err, "ratio")

	_, err = MatchKeypoints(nil, nil, Config{MaxDistance: -1})
	assert.ErrorContains(t, err, "max_distance")
}

// TestMatchKeypointsReturnsMatches keeps the Match type and the matcher
// usable side by side from the same package.
func TestMatchKeypointsReturnsMatches(t *testing.T) {
	var got []Match
	got, err := MatchKeypoints([]postprocess.Keypoint{kp(0, 1)}, []postprocess.Keypoint{kp(0, 1)}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []Match{{Query: 0, Train: 0, Distance: 0}}, got)
}
