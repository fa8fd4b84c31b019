// Package postprocess - provides Non-Maximum Suppression for keypoint candidates.
package postprocess

import (
	"sort"

	"github.com/chewxy/math32"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Radius is the suppression radius in grid cells. Zero disables suppression.
	Radius float32
	// BucketThreshold is the candidate count from which the bucket index is
	// used. Zero uses DefaultBucketThreshold.
	BucketThreshold int
}

// ApplyNMS filters clustered candidates using greedy radius suppression.
//
// Candidates are ranked by score descending with ties broken by lower (y, x).
// Walking that order, every candidate not yet suppressed is kept and
// suppresses all later candidates closer than Radius. Large inputs go through
// a spatial bucket index; the result is the same either way.
//
// Arguments:
//   - candidates: The candidates in any order. The slice is not modified.
//   - config: NMS configuration.
//
// Returns:
//   - The kept candidates in rank order.
func ApplyNMS(candidates []Candidate, config NMSConfig) []Candidate {
	limit := config.BucketThreshold
	if limit <= 0 {
		limit = DefaultBucketThreshold
	}
	if len(candidates) >= limit {
		return ApplyBucketedNMS(candidates, config)
	}
	return ApplyGreedyNMS(candidates, config)
}

// Suppress runs ApplyNMS with the default bucket threshold.
func Suppress(candidates []Candidate, radius float32) []Candidate {
	return ApplyNMS(candidates, NMSConfig{Radius: radius})
}

// ApplyGreedyNMS performs greedy suppression with a pairwise distance scan.
// It is quadratic and meant for a few thousand candidates at most.
func ApplyGreedyNMS(candidates []Candidate, config NMSConfig) []Candidate {
	sorted := sortCandidates(candidates)
	if config.Radius <= 0 {
		return sorted
	}

	r2 := config.Radius * config.Radius
	n := len(sorted)
	used := make([]bool, n)
	filtered := make([]Candidate, 0, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		anchor := sorted[i]
		filtered = append(filtered, anchor)

		for j := i + 1; j < n; j++ {
			if !used[j] && dist2(anchor, sorted[j]) < r2 {
				used[j] = true
			}
		}
	}

	return filtered
}

// ApplyBucketedNMS performs greedy suppression using a bucket index of cell
// size max(Radius, 1), so only the 3x3 surrounding buckets are scanned.
func ApplyBucketedNMS(candidates []Candidate, config NMSConfig) []Candidate {
	sorted := sortCandidates(candidates)
	if config.Radius <= 0 || len(sorted) == 0 {
		return sorted
	}

	r2 := config.Radius * config.Radius
	idx := newBucketIndex(sorted, config.Radius)
	used := make([]bool, len(sorted))
	filtered := make([]Candidate, 0, len(sorted))

	for i, anchor := range sorted {
		if used[i] {
			continue
		}
		filtered = append(filtered, anchor)

		bx, by := idx.bucket(anchor)
		for ny := by - 1; ny <= by+1; ny++ {
			for nx := bx - 1; nx <= bx+1; nx++ {
				for j := idx.head(nx, ny); j >= 0; j = idx.next[j] {
					if int(j) > i && !used[j] && dist2(anchor, sorted[j]) < r2 {
						used[j] = true
					}
				}
			}
		}
	}

	return filtered
}

const (
	maxBucketsPerPoint = 4
	minBuckets         = 64
)

// bucketIndex is an arena of singly linked lists, one per bucket, over the
// indices of a sorted candidate slice.
type bucketIndex struct {
	cell       float32
	minX, minY int
	cols, rows int
	heads      []int32
	next       []int32
}

func newBucketIndex(points []Candidate, radius float32) *bucketIndex {
	idx := &bucketIndex{cell: math32.Max(radius, 1)}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	idx.minX, idx.minY = minX, minY
	// Sparse candidates spread over a large box would need a huge arena;
	// widen the cell until the arena is bounded by the candidate count.
	limit := maxBucketsPerPoint*len(points) + minBuckets
	for {
		idx.cols = idx.coord(maxX-minX) + 1
		idx.rows = idx.coord(maxY-minY) + 1
		if idx.cols*idx.rows <= limit {
			break
		}
		idx.cell *= 2
	}

	idx.heads = make([]int32, idx.cols*idx.rows)
	for i := range idx.heads {
		idx.heads[i] = -1
	}
	idx.next = make([]int32, len(points))
	// Insert back to front so each list is in rank order.
	for i := len(points) - 1; i >= 0; i-- {
		bx, by := idx.bucket(points[i])
		slot := by*idx.cols + bx
		idx.next[i] = idx.heads[slot]
		idx.heads[slot] = int32(i)
	}
	return idx
}

func (b *bucketIndex) coord(offset int) int {
	return int(math32.Floor(float32(offset) / b.cell))
}

func (b *bucketIndex) bucket(c Candidate) (int, int) {
	return b.coord(c.X - b.minX), b.coord(c.Y - b.minY)
}

func (b *bucketIndex) head(bx, by int) int32 {
	if bx < 0 || by < 0 || bx >= b.cols || by >= b.rows {
		return -1
	}
	return b.heads[by*b.cols+bx]
}

func dist2(a, b Candidate) float32 {
	dx := float32(a.X - b.X)
	dy := float32(a.Y - b.Y)
	return dx*dx + dy*dy
}

func sortCandidates(candidates []Candidate) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return before(sorted[i], sorted[j])
	})
	return sorted
}
