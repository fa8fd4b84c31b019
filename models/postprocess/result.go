// Package postprocess - Postprocessing of SuperPoint network outputs into keypoints.
package postprocess

import (
	"time"

	"github.com/chewxy/math32"
)

// Candidate is a single above-threshold cell of the probability grid.
type Candidate struct {
	// X is the column of the cell in the heatmap grid.
	X int
	// Y is the row of the cell in the heatmap grid.
	Y int
	// Score is the detection probability of the cell.
	Score float32
}

// before reports whether a ranks ahead of b: higher score first, then lower
// (y, x).
func before(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// Keypoint is a detected keypoint with its descriptor.
//
// Keypoints are returned to the caller at the end of a pipeline run and are
// never mutated afterwards.
type Keypoint struct {
	// X is the column in original image space.
	X float32 `json:"x" yaml:"x"`
	// Y is the row in original image space.
	Y float32 `json:"y" yaml:"y"`
	// Score is the detection probability.
	Score float32 `json:"score" yaml:"score"`
	// Descriptor is the L2-normalized descriptor vector.
	Descriptor []float32 `json:"descriptor" yaml:"descriptor"`
	// Degenerate is set when the sampled descriptor had zero norm. The
	// descriptor is then the zero vector.
	Degenerate bool `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
}

// Distance returns the euclidean distance between two keypoints in image space.
func (k Keypoint) Distance(o Keypoint) float32 {
	dx := k.X - o.X
	dy := k.Y - o.Y
	return math32.Sqrt(dx*dx + dy*dy)
}

// Stats describes a single pipeline run.
type Stats struct {
	Candidates int           `json:"candidates"`
	Kept       int           `json:"kept"`
	Returned   int           `json:"returned"`
	Degenerate int           `json:"degenerate"`
	Decode     time.Duration `json:"decode"`
	Suppress   time.Duration `json:"suppress"`
	Describe   time.Duration `json:"describe"`
}

// Result is the output of a pipeline run.
type Result struct {
	// Keypoints ordered by score descending, ties by (y, x) ascending.
	Keypoints []Keypoint
	Stats     Stats
}
