package superpoint

import (
	"context"
	"image"
	"time"

	"github.com/nvr-ai/go-superpoint/models/model"
	"github.com/nvr-ai/go-superpoint/models/model/preprocess"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultWidth is the default model input width.
	DefaultWidth = 320
	// DefaultHeight is the default model input height.
	DefaultHeight = 240
	// DescriptorSize is the length of a SuperPoint descriptor.
	DescriptorSize = 256
)

// SuperPoint is the instance of the SuperPoint model.
type SuperPoint struct {
	options      model.BaseModel
	preprocessor *preprocess.Preprocessor
	logger       *zap.Logger
}

// NewModel creates a new SuperPoint model.
//
// Arguments:
//   - args: The arguments for creating a new model. A zero input size selects
//     DefaultWidth x DefaultHeight; empty tensor names select "image", "semi"
//     and "desc".
//
// Returns:
//   - *SuperPoint: The model.
//   - error: An error if the input size is not a positive multiple of CellSize.
func NewModel(args model.NewModelArgs) (*SuperPoint, error) {
	width, height := args.Width, args.Height
	if width == 0 && height == 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	if width <= 0 || height <= 0 || width%CellSize != 0 || height%CellSize != 0 {
		return nil, errors.Errorf("superpoint input %dx%d must be a positive multiple of %d", width, height, CellSize)
	}

	inputs := args.Inputs
	if len(inputs) == 0 {
		inputs = []string{"image"}
	}
	outputs := args.Outputs
	if len(outputs) == 0 {
		outputs = []string{"semi", "desc"}
	}
	if len(inputs) != 1 || len(outputs) != 2 {
		return nil, errors.Errorf("superpoint expects 1 input and 2 outputs, got %d and %d", len(inputs), len(outputs))
	}

	hc, wc := int64(height/CellSize), int64(width/CellSize)
	cfg := preprocess.GetSuperPointConfig(width, height)
	if args.RawPixels {
		cfg.NormalizationType = preprocess.NormalizeNone
	}
	return &SuperPoint{
		options: model.BaseModel{
			Name:       model.ModelNameSuperPoint,
			Family:     model.ModelFamilyKeypoint,
			Path:       args.Path,
			Inputs:     inputs,
			Outputs:    outputs,
			InputShape: cfg.Shape(),
			OutputShapes: [][]int64{
				{1, CellSize*CellSize + 1, hc, wc},
				{1, DescriptorSize, hc, wc},
			},
		},
		preprocessor: preprocess.NewPreprocessor(cfg),
		logger:       zap.NewNop(),
	}, nil
}

// SetLogger sets the logger passed to the preprocessor and the pipeline.
func (m *SuperPoint) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	m.logger = logger
	m.preprocessor.SetLogger(logger)
}

// Options returns the model description.
func (m *SuperPoint) Options() model.BaseModel {
	return m.options
}

// PreProcess converts img into the [1, 1, H, W] grayscale input tensor.
func (m *SuperPoint) PreProcess(img image.Image) ([]float32, error) {
	result, err := m.preprocessor.PreprocessImage(img)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// PostProcess decodes both network heads and runs the keypoint pipeline.
//
// Arguments:
//   - ctx: Cancels the pipeline.
//   - outputs: The raw semi and desc tensors.
//   - config: The pipeline configuration. OriginalSize should hold the size of
//     the source image so keypoints come back in image coordinates.
//
// Returns:
//   - *postprocess.Result: The keypoints and run statistics.
//   - error: A decoding, configuration or dimension error.
func (m *SuperPoint) PostProcess(ctx context.Context, outputs model.Outputs, config postprocess.Config) (*postprocess.Result, error) {
	start := time.Now()
	heatmap, err := DecodeSemi(outputs.Semi, CellSize)
	if err != nil {
		return nil, errors.Wrap(err, "decode semi")
	}
	field, err := DecodeDescriptors(outputs.Desc)
	if err != nil {
		return nil, errors.Wrap(err, "decode descriptors")
	}
	m.logger.Debug("decoded heads",
		zap.Int("width", heatmap.Width),
		zap.Int("height", heatmap.Height),
		zap.Int("channels", field.Channels),
		zap.Duration("elapsed", time.Since(start)),
	)

	pipeline, err := postprocess.NewPipeline(config, postprocess.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, heatmap, field)
}

// Heatmap decodes the detector head into a probability grid in model input
// coordinates.
func (m *SuperPoint) Heatmap(outputs model.Outputs) (postprocess.Heatmap, error) {
	h, err := DecodeSemi(outputs.Semi, CellSize)
	if err != nil {
		return postprocess.Heatmap{}, errors.Wrap(err, "decode semi")
	}
	return h, nil
}
