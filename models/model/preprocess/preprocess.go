// Package preprocess - converts images into model input tensors.
package preprocess

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImageFormat represents the format of an encoded image.
type ImageFormat string

const (
	// ImageFormatJPEG represents JPEG image format.
	ImageFormatJPEG ImageFormat = "jpeg"
	// ImageFormatPNG represents PNG image format.
	ImageFormatPNG ImageFormat = "png"
)

// Image represents an encoded input image with metadata.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
}

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
)

// ModelConfig defines preprocessing configuration for a specific model.
type ModelConfig struct {
	// Name of the model for log fields.
	Name string `json:"name" yaml:"name"`
	// InputWidth is the expected width of the model input.
	InputWidth int `json:"input_width" yaml:"input_width"`
	// InputHeight is the expected height of the model input.
	InputHeight int `json:"input_height" yaml:"input_height"`
	// NormalizationType defines how to normalize pixel values.
	NormalizationType NormalizationType `json:"normalization" yaml:"normalization"`
}

// Shape returns the NCHW shape of a single grayscale input.
func (c ModelConfig) Shape() []int64 {
	return []int64{1, 1, int64(c.InputHeight), int64(c.InputWidth)}
}

// Validate checks that the input size is usable.
func (c ModelConfig) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.NormalizationType < NormalizeNone || c.NormalizationType > NormalizeMinusOneToOne {
		return errors.Errorf("unknown normalization type %d", c.NormalizationType)
	}
	return nil
}

// GetSuperPointConfig returns the standard configuration for SuperPoint
// models: a single grayscale channel scaled to [0, 1].
//
// Arguments:
// - width: The model input width, a multiple of 8.
// - height: The model input height, a multiple of 8.
//
// Returns:
// - A configured ModelConfig for SuperPoint.
//
// @example
// config := GetSuperPointConfig(320, 240)
// preprocessor := NewPreprocessor(config)
func GetSuperPointConfig(width, height int) *ModelConfig {
	return &ModelConfig{
		Name:              "superpoint",
		InputWidth:        width,
		InputHeight:       height,
		NormalizationType: NormalizeZeroToOne,
	}
}

// Result contains the preprocessed image data and metadata.
type Result struct {
	// Data is the preprocessed float32 tensor data in CHW order.
	Data []float32
	// OriginalSize is the image size before resizing.
	OriginalSize image.Point
	// Shape contains the tensor shape [1, 1, H, W].
	Shape []int64
}

// Preprocessor handles image preprocessing for ONNX models.
type Preprocessor struct {
	config     *ModelConfig
	bufferPool *sync.Pool
	logger     *zap.Logger
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The model-specific preprocessing configuration.
//
// Returns:
// - A configured Preprocessor instance.
func NewPreprocessor(config *ModelConfig) *Preprocessor {
	return &Preprocessor{
		config: config,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
		logger: zap.NewNop(),
	}
}

// SetLogger replaces the debug logger.
func (p *Preprocessor) SetLogger(logger *zap.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Config returns the preprocessing configuration.
func (p *Preprocessor) Config() ModelConfig {
	return *p.config
}

// Preprocess decodes an encoded image and converts it into a model tensor.
//
// Arguments:
// - img: The encoded input image.
//
// Returns:
// - Result containing the preprocessed tensor and metadata.
// - error if decoding or preprocessing fails.
func (p *Preprocessor) Preprocess(img *Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if len(img.Data) == 0 {
		return nil, errors.New("image data is empty")
	}

	decoded, err := p.decodeImage(img)
	if err != nil {
		return nil, errors.Wrap(err, "image decoding failed")
	}
	return p.PreprocessImage(decoded)
}

// PreprocessImage converts a decoded image into a model tensor.
//
// The image is converted to luminance, resized to the model input with a
// Lanczos3 filter and normalized according to the configuration.
//
// @example
// result, err := preprocessor.PreprocessImage(img)
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// input := result.Data
func (p *Preprocessor) PreprocessImage(img image.Image) (*Result, error) {
	if err := p.config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid preprocessing config")
	}
	if img == nil {
		return nil, errors.New("image is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	resized := img
	if bounds.Dx() != p.config.InputWidth || bounds.Dy() != p.config.InputHeight {
		resized = resize.Resize(uint(p.config.InputWidth), uint(p.config.InputHeight), img, resize.Lanczos3)
	}

	data := p.imageToTensor(resized)
	p.normalize(data)

	p.logger.Debug("preprocessed image",
		zap.String("model", p.config.Name),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
		zap.Int64s("shape", p.config.Shape()),
	)

	return &Result{
		Data:         data,
		OriginalSize: image.Point{X: bounds.Dx(), Y: bounds.Dy()},
		Shape:        p.config.Shape(),
	}, nil
}

func (p *Preprocessor) decodeImage(img *Image) (image.Image, error) {
	buf := p.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		p.bufferPool.Put(buf)
	}()

	buf.Write(img.Data)
	decoded, _, err := image.Decode(bytes.NewReader(buf.Bytes()))
	return decoded, err
}

// imageToTensor converts an image to a single channel luminance tensor.
func (p *Preprocessor) imageToTensor(img image.Image) []float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	tensor := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r8 := float32(uint8(r >> 8))
			g8 := float32(uint8(g >> 8))
			b8 := float32(uint8(b >> 8))
			tensor[y*width+x] = 0.299*r8 + 0.587*g8 + 0.114*b8
		}
	}
	return tensor
}

// normalize applies normalization to the tensor in place.
func (p *Preprocessor) normalize(tensor []float32) {
	switch p.config.NormalizationType {
	case NormalizeZeroToOne:
		for i := range tensor {
			tensor[i] /= 255.0
		}
	case NormalizeMinusOneToOne:
		for i := range tensor {
			tensor[i] = (tensor[i] / 127.5) - 1.0
		}
	}
}

// BatchPreprocess processes multiple images in parallel.
//
// Arguments:
// - images: Slice of decoded images to preprocess.
// - maxConcurrency: Maximum number of images to process concurrently.
//
// Returns:
// - Slice of preprocessing results in input order.
// - error if any preprocessing fails.
func (p *Preprocessor) BatchPreprocess(images []image.Image, maxConcurrency int) ([]*Result, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	results := make([]*Result, len(images))
	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, img := range images {
		g.Go(func() error {
			result, err := p.PreprocessImage(img)
			if err != nil {
				return errors.Wrapf(err, "failed to preprocess image %d", i)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
