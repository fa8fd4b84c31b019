// Package matching - descriptor matching between two keypoint sets.
package matching

import (
	"math"
	"sort"

	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Match pairs keypoint Query of the first set with keypoint Train of the
// second set.
type Match struct {
	Query    int     `json:"query" yaml:"query"`
	Train    int     `json:"train" yaml:"train"`
	Distance float64 `json:"distance" yaml:"distance"`
}

// Config controls which nearest neighbours are accepted as matches.
type Config struct {
	// CrossCheck keeps only mutual nearest neighbours.
	CrossCheck bool `json:"cross_check" yaml:"cross_check"`
	// MaxDistance rejects matches farther apart than this L2 distance.
	// Zero disables the gate.
	MaxDistance float64 `json:"max_distance" yaml:"max_distance"`
	// Ratio applies Lowe's ratio test: the best distance must be below Ratio
	// times the second best. Zero disables the test.
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// DefaultConfig returns mutual nearest neighbour matching with a 0.7
// distance gate, which suits unit-norm descriptors.
func DefaultConfig() Config {
	return Config{CrossCheck: true, MaxDistance: 0.7}
}

// Validate checks the gate and ratio ranges.
func (c Config) Validate() error {
	if math.IsNaN(c.MaxDistance) || c.MaxDistance < 0 {
		return errors.Errorf("max_distance must be >= 0, got %v", c.MaxDistance)
	}
	if math.IsNaN(c.Ratio) || c.Ratio < 0 || c.Ratio > 1 {
		return errors.Errorf("ratio must be within [0, 1], got %v", c.Ratio)
	}
	return nil
}

// MatchKeypoints finds, for every keypoint of kps1, its nearest neighbour in kps2 by
// L2 descriptor distance and filters the pairs through config.
//
// Keypoints flagged Degenerate never match. The result is sorted by distance,
// then by Query.
//
// Arguments:
//   - kps1: The query keypoints.
//   - kps2: The train keypoints.
//   - config: Matching filters.
//
// Returns:
//   - []Match: The accepted matches, indices into kps1 and kps2.
//   - error: If config is invalid or descriptor lengths differ.
func MatchKeypoints(kps1, kps2 []postprocess.Keypoint, config Config) ([]Match, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	q, qi, dim, err := descriptorMatrix(kps1, 0)
	if err != nil {
		return nil, errors.Wrap(err, "query keypoints")
	}
	tr, ti, dim, err := descriptorMatrix(kps2, dim)
	if err != nil {
		return nil, errors.Wrap(err, "train keypoints")
	}
	if q == nil || tr == nil {
		return []Match{}, nil
	}

	d := Distances(q, tr)
	rows, cols := d.Dims()

	// Best row per column, for the cross check.
	bestRow := make([]int, cols)
	for j := 0; j < cols; j++ {
		for i := 1; i < rows; i++ {
			if d.At(i, j) < d.At(bestRow[j], j) {
				bestRow[j] = i
			}
		}
	}

	matches := make([]Match, 0, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, d)
		j := floats.MinIdx(row)
		best := row[j]

		if config.CrossCheck && bestRow[j] != i {
			continue
		}
		if config.MaxDistance > 0 && best > config.MaxDistance {
			continue
		}
		if config.Ratio > 0 && cols > 1 {
			second := math.Inf(1)
			for k, v := range row {
				if k != j && v < second {
					second = v
				}
			}
			if best >= config.Ratio*second {
				continue
			}
		}
		matches = append(matches, Match{Query: qi[i], Train: ti[j], Distance: best})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].Query < matches[b].Query
	})
	return matches, nil
}

// Distances returns the matrix of L2 distances between the rows of a and b.
func Distances(a, b mat.Matrix) *mat.Dense {
	var d mat.Dense
	d.Mul(a, b.T())

	na := rowNorms(a)
	nb := rowNorms(b)
	d.Apply(func(i, j int, v float64) float64 {
		return math.Sqrt(math.Max(na[i]+nb[j]-2*v, 0))
	}, &d)
	return &d
}

func rowNorms(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, m)
		out[i] = floats.Dot(row, row)
	}
	return out
}

// descriptorMatrix stacks the descriptors of the non-degenerate keypoints.
// It returns the matrix, the original index of each row and the descriptor
// length. dim, when positive, is the length every descriptor must have.
func descriptorMatrix(kps []postprocess.Keypoint, dim int) (*mat.Dense, []int, int, error) {
	var index []int
	for i, k := range kps {
		if k.Degenerate || len(k.Descriptor) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(k.Descriptor)
		}
		if len(k.Descriptor) != dim {
			return nil, nil, 0, errors.Errorf("keypoint %d has a %d-value descriptor, want %d", i, len(k.Descriptor), dim)
		}
		index = append(index, i)
	}
	if len(index) == 0 {
		return nil, nil, dim, nil
	}

	data := make([]float64, 0, len(index)*dim)
	for _, i := range index {
		for _, v := range kps[i].Descriptor {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(len(index), dim, data), index, dim, nil
}
