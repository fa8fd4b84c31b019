package postprocess

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pipeline turns a probability grid and a descriptor field into keypoints.
//
// A Pipeline holds only its immutable configuration and a logger, so a single
// instance can serve concurrent Run calls.
type Pipeline struct {
	config Config
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage summaries and degenerate
// descriptor warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline validates config and creates a pipeline.
//
// Arguments:
//   - config: The pipeline configuration.
//   - opts: Optional settings such as WithLogger.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: The aggregated *ConfigurationError values if config is invalid.
func NewPipeline(config Config, opts ...Option) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{config: config, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Extract runs a one-off pipeline and returns only the keypoints.
func Extract(ctx context.Context, h Heatmap, f DescriptorField, config Config) ([]Keypoint, error) {
	p, err := NewPipeline(config)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx, h, f)
	if err != nil {
		return nil, err
	}
	return res.Keypoints, nil
}

// Run decodes, suppresses, ranks and describes the keypoints of one frame.
//
// Order of operations:
//  1. Shape checks of both tensors against each other and the declared stride.
//  2. Candidate decoding, in row bands when UseParallel is set.
//  3. A single global NMS pass over all candidates.
//  4. Ranking and truncation to MaxKeypoints.
//  5. Descriptor sampling and rescaling into original image space.
//
// Arguments:
//   - ctx: Cancels the parallel decode between bands.
//   - h: The probability grid.
//   - f: The descriptor field.
//
// Returns:
//   - *Result: The keypoints and run statistics.
//   - error: A *ConfigurationError or *DimensionMismatchError. No partial
//     result is returned with an error.
func (p *Pipeline) Run(ctx context.Context, h Heatmap, f DescriptorField) (*Result, error) {
	cfg := p.config
	if err := f.validate(); err != nil {
		return nil, err
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	if err := checkCompatible(h, f, cfg.DescriptorStride); err != nil {
		return nil, err
	}

	var stats Stats

	start := time.Now()
	var candidates []Candidate
	if cfg.UseParallel {
		var err error
		candidates, err = DecodeParallel(ctx, h, cfg.Threshold, cfg.BorderMargin, cfg.parallel())
		if err != nil {
			return nil, err
		}
	} else {
		candidates = Decode(h, cfg.Threshold, cfg.BorderMargin)
	}
	stats.Candidates = len(candidates)
	stats.Decode = time.Since(start)

	start = time.Now()
	kept := ApplyNMS(candidates, NMSConfig{Radius: cfg.NMSRadius, BucketThreshold: cfg.bucketThreshold()})
	stats.Kept = len(kept)
	ranked := Rank(kept, cfg.MaxKeypoints)
	stats.Suppress = time.Since(start)

	start = time.Now()
	sampler := NewSampler(f, h.Width, h.Height)
	sx, sy := cfg.scale(h)
	keypoints := make([]Keypoint, 0, len(ranked))
	for _, c := range ranked {
		desc, ok := sampler.Sample(float32(c.X), float32(c.Y))
		if !ok {
			stats.Degenerate++
			p.logger.Warn("degenerate descriptor",
				zap.Int("x", c.X),
				zap.Int("y", c.Y),
				zap.Float32("score", c.Score),
				zap.Bool("dropped", cfg.DropDegenerate),
			)
			if cfg.DropDegenerate {
				continue
			}
		}
		keypoints = append(keypoints, Keypoint{
			X:          float32(c.X) * sx,
			Y:          float32(c.Y) * sy,
			Score:      c.Score,
			Descriptor: desc,
			Degenerate: !ok,
		})
	}
	stats.Describe = time.Since(start)
	stats.Returned = len(keypoints)

	p.logger.Debug("keypoints extracted",
		zap.Int("candidates", stats.Candidates),
		zap.Int("kept", stats.Kept),
		zap.Int("returned", stats.Returned),
		zap.Int("degenerate", stats.Degenerate),
		zap.Duration("decode", stats.Decode),
		zap.Duration("suppress", stats.Suppress),
		zap.Duration("describe", stats.Describe),
	)

	return &Result{Keypoints: keypoints, Stats: stats}, nil
}
