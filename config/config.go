// Package config - file configuration for the keypoint detector.
//
// A configuration file is YAML with one section per concern:
//
//	model:
//	  name: superpoint
//	  path: ./superpoint.onnx
//	  provider:
//	    backend: cpu
//	image:
//	  width: 320
//	  height: 240
//	  normalize: true
//	keypoint:
//	  threshold: 0.05
//	  max_keypoints: 1000
//	  nms_radius: 4
//	visualization:
//	  circle_radius: 3
//	  circle_color: [255, 0, 0]
//	  line_thickness: 2
package config

import (
	"image/color"
	"os"

	"github.com/nvr-ai/go-superpoint/images"
	"github.com/nvr-ai/go-superpoint/inference/providers"
	"github.com/nvr-ai/go-superpoint/matching"
	"github.com/nvr-ai/go-superpoint/models/model"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/nvr-ai/go-superpoint/models/superpoint"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config is the root of a configuration file.
type Config struct {
	Model         ModelConfig         `json:"model" yaml:"model"`
	Image         ImageConfig         `json:"image" yaml:"image"`
	Keypoint      KeypointConfig      `json:"keypoint" yaml:"keypoint"`
	Matching      matching.Config     `json:"matching" yaml:"matching"`
	Visualization VisualizationConfig `json:"visualization" yaml:"visualization"`
}

// ModelConfig selects the model file and the execution provider.
type ModelConfig struct {
	Name     model.Name       `json:"name" yaml:"name"`
	Path     string           `json:"path" yaml:"path"`
	Provider providers.Config `json:"provider" yaml:"provider"`
}

// ImageConfig is the model input size.
type ImageConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	// Normalize scales pixel intensities to [0, 1].
	Normalize bool `json:"normalize" yaml:"normalize"`
}

// KeypointConfig holds the extraction parameters.
type KeypointConfig struct {
	Threshold      float32 `json:"threshold" yaml:"threshold"`
	MaxKeypoints   int     `json:"max_keypoints" yaml:"max_keypoints"`
	NMSRadius      float32 `json:"nms_radius" yaml:"nms_radius"`
	UseParallel    bool    `json:"use_parallel" yaml:"use_parallel"`
	Workers        int     `json:"workers" yaml:"workers"`
	BorderMargin   int     `json:"border_margin" yaml:"border_margin"`
	DropDegenerate bool    `json:"drop_degenerate" yaml:"drop_degenerate"`
}

// VisualizationConfig controls overlay rendering.
type VisualizationConfig struct {
	CircleRadius  float64  `json:"circle_radius" yaml:"circle_radius"`
	CircleColor   [3]uint8 `json:"circle_color" yaml:"circle_color"`
	LineThickness float64  `json:"line_thickness" yaml:"line_thickness"`
}

// Default returns the stock SuperPoint configuration: a 320x240 normalized
// input, threshold 0.05, at most 1000 keypoints 4 pixels apart, drawn as red
// circles of radius 3.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name:     model.ModelNameSuperPoint,
			Path:     "./superpoint.onnx",
			Provider: providers.DefaultConfig(),
		},
		Image: ImageConfig{
			Width:     superpoint.DefaultWidth,
			Height:    superpoint.DefaultHeight,
			Normalize: true,
		},
		Keypoint: KeypointConfig{
			Threshold:    0.05,
			MaxKeypoints: 1000,
			NMSRadius:    4,
			UseParallel:  true,
		},
		Matching: matching.DefaultConfig(),
		Visualization: VisualizationConfig{
			CircleRadius:  3,
			CircleColor:   [3]uint8{255, 0, 0},
			LineThickness: 2,
		},
	}
}

// Load reads a YAML configuration file. Sections and fields missing from the
// file keep their Default values.
//
// Arguments:
//   - path: The configuration file.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration on top of Default.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return c, nil
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}

// Validate checks every section and reports all problems together.
func (c *Config) Validate() error {
	var err error
	if c.Model.Path == "" {
		err = multierr.Append(err, errors.New("model.path is required"))
	}
	if perr := c.Model.Provider.Validate(); perr != nil {
		err = multierr.Append(err, errors.Wrap(perr, "model.provider"))
	}
	if c.Image.Width <= 0 || c.Image.Height <= 0 ||
		c.Image.Width%superpoint.CellSize != 0 || c.Image.Height%superpoint.CellSize != 0 {
		err = multierr.Append(err, errors.Errorf("image size %dx%d must be a positive multiple of %d",
			c.Image.Width, c.Image.Height, superpoint.CellSize))
	}
	err = multierr.Append(err, c.Postprocess().Validate())
	if merr := c.Matching.Validate(); merr != nil {
		err = multierr.Append(err, errors.Wrap(merr, "matching"))
	}
	if c.Visualization.CircleRadius < 0 || c.Visualization.LineThickness < 0 {
		err = multierr.Append(err, errors.New("visualization sizes must be >= 0"))
	}
	return err
}

// ModelArgs returns the arguments for models.NewModel.
func (c *Config) ModelArgs() model.NewModelArgs {
	return model.NewModelArgs{
		Name:      c.Model.Name,
		Path:      c.Model.Path,
		Width:     c.Image.Width,
		Height:    c.Image.Height,
		RawPixels: !c.Image.Normalize,
	}
}

// Postprocess returns the extraction configuration. Descriptors are sampled
// on the model's 8 pixel cell grid.
func (c *Config) Postprocess() postprocess.Config {
	return postprocess.Config{
		Threshold:        c.Keypoint.Threshold,
		NMSRadius:        c.Keypoint.NMSRadius,
		MaxKeypoints:     c.Keypoint.MaxKeypoints,
		UseParallel:      c.Keypoint.UseParallel,
		Workers:          c.Keypoint.Workers,
		BorderMargin:     c.Keypoint.BorderMargin,
		DescriptorStride: superpoint.CellSize,
		DropDegenerate:   c.Keypoint.DropDegenerate,
	}
}

// Style returns the overlay style.
func (c *Config) Style() images.Style {
	s := images.DefaultStyle()
	s.Radius = c.Visualization.CircleRadius
	s.LineWidth = c.Visualization.LineThickness
	rgb := c.Visualization.CircleColor
	s.Color = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	return s
}
