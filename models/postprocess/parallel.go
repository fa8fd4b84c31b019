package postprocess

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig defines how the heatmap scan is partitioned.
type ParallelConfig struct {
	// Workers is the maximum number of bands decoded at the same time.
	Workers int
	// Bands is the number of contiguous row bands.
	Bands int
}

// DecodeParallel decodes the heatmap in row bands on a bounded worker pool.
//
// Every band writes to its own slice and the slices are concatenated in band
// order, so the output equals Decode(h, threshold, margin) for any number of
// bands or workers. Suppression is left to the caller and must run once over
// the merged list.
//
// Arguments:
//   - ctx: Checked before each band starts.
//   - h: The probability grid, shared read-only by all workers.
//   - threshold: The minimum score.
//   - margin: The border margin in cells.
//   - config: Worker and band counts. Values below 1 are treated as 1.
//
// Returns:
//   - []Candidate: The merged candidates in row-major order.
//   - error: The context error if ctx was cancelled.
func DecodeParallel(ctx context.Context, h Heatmap, threshold float32, margin int, config ParallelConfig) ([]Candidate, error) {
	bands := max(1, min(config.Bands, h.Height))
	workers := max(1, config.Workers)
	if bands == 1 {
		return Decode(h, threshold, margin), ctx.Err()
	}

	parts := make([][]Candidate, bands)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for b := 0; b < bands; b++ {
		y0, y1 := bandRows(h.Height, bands, b)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[b] = DecodeRows(h, threshold, margin, y0, y1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	merged := make([]Candidate, 0, total)
	for _, p := range parts {
		merged = append(merged, p...)
	}
	return merged, nil
}

// bandRows returns the row range of band b when height rows are split into
// n nearly equal bands.
func bandRows(height, n, b int) (int, int) {
	return b * height / n, (b + 1) * height / n
}
