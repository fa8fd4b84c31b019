package postprocess

import (
	"image"
	"runtime"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"
)

// DefaultBucketThreshold is the candidate count from which NMS switches from
// the pairwise scan to the spatial bucket index.
const DefaultBucketThreshold = 2048

// Config defines the parameters of a single pipeline run.
type Config struct {
	// Threshold is the minimum score a cell needs to become a candidate.
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// NMSRadius is the suppression radius in heatmap pixels. Zero disables NMS.
	NMSRadius float32 `json:"nms_radius" yaml:"nms_radius"`
	// MaxKeypoints caps the number of returned keypoints. Zero means no limit.
	MaxKeypoints int `json:"max_keypoints" yaml:"max_keypoints"`
	// UseParallel decodes the heatmap in row bands on a worker pool.
	UseParallel bool `json:"use_parallel" yaml:"use_parallel"`
	// Workers bounds the decoding pool. Zero uses runtime.NumCPU().
	Workers int `json:"workers" yaml:"workers"`
	// Bands is the number of row bands. Zero uses one band per worker.
	Bands int `json:"bands" yaml:"bands"`
	// BorderMargin drops candidates closer than this many cells to the border.
	BorderMargin int `json:"border_margin" yaml:"border_margin"`
	// DescriptorStride is the declared heatmap to descriptor grid ratio. Zero
	// means the ratio is derived from the grid sizes.
	DescriptorStride int `json:"descriptor_stride" yaml:"descriptor_stride"`
	// OriginalSize is the size of the source image. A zero size keeps
	// keypoints in heatmap coordinates.
	OriginalSize image.Point `json:"original_size" yaml:"original_size"`
	// DropDegenerate removes keypoints whose descriptor had zero norm.
	DropDegenerate bool `json:"drop_degenerate" yaml:"drop_degenerate"`
	// BucketThreshold overrides DefaultBucketThreshold when positive.
	BucketThreshold int `json:"bucket_threshold" yaml:"bucket_threshold"`
}

// DefaultConfig returns the configuration commonly used with SuperPoint.
//
// Returns:
//   - Config: threshold 0.015, radius 4, at most 1000 keypoints, stride 8.
func DefaultConfig() Config {
	return Config{
		Threshold:        0.015,
		NMSRadius:        4,
		MaxKeypoints:     1000,
		UseParallel:      true,
		DescriptorStride: 8,
	}
}

// Validate checks every field and returns all problems at once. Each problem
// is a *ConfigurationError.
func (c Config) Validate() error {
	var err error
	if math32.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		err = multierr.Append(err, &ConfigurationError{Field: "threshold", Value: c.Threshold, Reason: "must be within [0, 1]"})
	}
	if math32.IsNaN(c.NMSRadius) || math32.IsInf(c.NMSRadius, 0) || c.NMSRadius < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "nms_radius", Value: c.NMSRadius, Reason: "must be a finite value >= 0"})
	}
	if c.MaxKeypoints < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "max_keypoints", Value: c.MaxKeypoints, Reason: "must be >= 0"})
	}
	if c.Workers < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "workers", Value: c.Workers, Reason: "must be >= 0"})
	}
	if c.Bands < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "bands", Value: c.Bands, Reason: "must be >= 0"})
	}
	if c.BorderMargin < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "border_margin", Value: c.BorderMargin, Reason: "must be >= 0"})
	}
	if c.DescriptorStride < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "descriptor_stride", Value: c.DescriptorStride, Reason: "must be >= 0"})
	}
	if c.OriginalSize.X < 0 || c.OriginalSize.Y < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "original_size", Value: c.OriginalSize, Reason: "must not be negative"})
	}
	if c.BucketThreshold < 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "bucket_threshold", Value: c.BucketThreshold, Reason: "must be >= 0"})
	}
	return err
}

func (c Config) parallel() ParallelConfig {
	workers := c.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	bands := c.Bands
	if bands == 0 {
		bands = workers
	}
	return ParallelConfig{Workers: workers, Bands: bands}
}

func (c Config) bucketThreshold() int {
	if c.BucketThreshold > 0 {
		return c.BucketThreshold
	}
	return DefaultBucketThreshold
}

// scale returns the grid to image scale factors for a heatmap of the given size.
func (c Config) scale(h Heatmap) (float32, float32) {
	if c.OriginalSize.X == 0 || c.OriginalSize.Y == 0 {
		return 1, 1
	}
	return float32(c.OriginalSize.X) / float32(h.Width), float32(c.OriginalSize.Y) / float32(h.Height)
}
