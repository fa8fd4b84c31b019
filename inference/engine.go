// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"
	"image"
	"time"

	"github.com/nvr-ai/go-superpoint/inference/providers"
	"github.com/nvr-ai/go-superpoint/models"
	"github.com/nvr-ai/go-superpoint/models/model"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Engine detects and describes keypoints in images.
type Engine interface {
	Detect(ctx context.Context, img image.Image) (*postprocess.Result, error)
	// Heatmap returns the detection probability grid of img at the model
	// input resolution.
	Heatmap(ctx context.Context, img image.Image) (postprocess.Heatmap, error)
	Close() error
}

// EngineBuilder assembles an Engine with a fluent API. The first error is
// kept and returned by Build.
type EngineBuilder struct {
	runner    Runner
	provider  *providers.Config
	model     model.Model
	config    postprocess.Config
	hasConfig bool
	logger    *zap.Logger
	err       error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{logger: zap.NewNop()}
}

// WithModel creates the model through the registry.
//
// Arguments:
//   - args: The model arguments.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(args model.NewModelArgs) *EngineBuilder {
	if b.HasError() {
		return b
	}
	m, err := models.NewModel(args)
	if err != nil {
		b.err = err
		return b
	}
	b.model = m
	return b
}

// WithRunner sets the forward pass runner, replacing any provider set with
// WithProvider.
func (b *EngineBuilder) WithRunner(r Runner) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if r == nil {
		b.err = errors.New("runner is nil")
		return b
	}
	b.runner = r
	return b
}

// WithProvider requests an ONNX Runtime session for the model, created by
// Build with the given execution provider.
func (b *EngineBuilder) WithProvider(config providers.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if err := config.Validate(); err != nil {
		b.err = err
		return b
	}
	b.provider = &config
	return b
}

// WithConfig sets the keypoint pipeline configuration. OriginalSize is
// overwritten per image by Detect.
func (b *EngineBuilder) WithConfig(config postprocess.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if err := config.Validate(); err != nil {
		b.err = err
		return b
	}
	b.config = config
	b.hasConfig = true
	return b
}

// WithLogger sets the logger shared by the engine, model and session.
func (b *EngineBuilder) WithLogger(logger *zap.Logger) *EngineBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - Engine: The engine.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build builds the engine. Without WithConfig the engine uses
// postprocess.DefaultConfig.
//
// Returns:
//   - Engine: The engine.
//   - error: The first builder error, or a missing model or runner.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.model == nil {
		return nil, errors.New("model not configured")
	}
	if l, ok := b.model.(interface{ SetLogger(*zap.Logger) }); ok {
		l.SetLogger(b.logger)
	}

	runner := b.runner
	if runner == nil {
		if b.provider == nil {
			return nil, errors.New("runner not configured")
		}
		s, err := NewSession(*b.provider, b.model.Options(), b.logger)
		if err != nil {
			return nil, err
		}
		runner = s
	}

	config := b.config
	if !b.hasConfig {
		config = postprocess.DefaultConfig()
	}

	return &engine{
		runner: runner,
		model:  b.model,
		config: config,
		logger: b.logger,
	}, nil
}

// engine implements the Engine interface.
type engine struct {
	runner Runner
	model  model.Model
	config postprocess.Config
	logger *zap.Logger
}

// Detect runs preprocessing, the forward pass and keypoint post-processing
// for one image. Keypoints are returned in the coordinates of img.
//
// Arguments:
//   - ctx: The context for the detection.
//   - img: The image to process.
//
// Returns:
//   - *postprocess.Result: The keypoints and run statistics.
//   - error: The error if any.
func (e *engine) Detect(ctx context.Context, img image.Image) (*postprocess.Result, error) {
	start := time.Now()
	outputs, pre, err := e.forward(ctx, img)
	if err != nil {
		return nil, err
	}
	run := time.Since(start) - pre

	config := e.config
	config.OriginalSize = img.Bounds().Size()
	result, err := e.model.PostProcess(ctx, outputs, config)
	if err != nil {
		return nil, errors.Wrap(err, "postprocess")
	}

	e.logger.Debug("detect",
		zap.Int("keypoints", len(result.Keypoints)),
		zap.Duration("preprocess", pre),
		zap.Duration("inference", run),
		zap.Duration("total", time.Since(start)),
	)
	return result, nil
}

// Heatmap runs the forward pass and decodes the detector head.
func (e *engine) Heatmap(ctx context.Context, img image.Image) (postprocess.Heatmap, error) {
	hm, ok := e.model.(model.HeatmapModel)
	if !ok {
		return postprocess.Heatmap{}, errors.Errorf("model %s does not expose a heatmap", e.model.Options().Name)
	}
	outputs, _, err := e.forward(ctx, img)
	if err != nil {
		return postprocess.Heatmap{}, err
	}
	return hm.Heatmap(outputs)
}

// forward preprocesses img and runs the model. It also returns the time
// spent preprocessing.
func (e *engine) forward(ctx context.Context, img image.Image) (model.Outputs, time.Duration, error) {
	if img == nil {
		return model.Outputs{}, 0, errors.New("image is nil")
	}
	start := time.Now()
	input, err := e.model.PreProcess(img)
	if err != nil {
		return model.Outputs{}, 0, errors.Wrap(err, "preprocess")
	}
	pre := time.Since(start)

	outputs, err := e.runner.Run(ctx, input)
	if err != nil {
		return model.Outputs{}, pre, errors.Wrap(err, "inference")
	}
	return outputs, pre, nil
}

// Close releases the runner.
func (e *engine) Close() error {
	return e.runner.Close()
}
