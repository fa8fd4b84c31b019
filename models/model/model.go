// Package model - Definitions shared by all keypoint models.
package model

import (
	"context"
	"image"

	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"gorgonia.org/tensor"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyKeypoint is the family of dense keypoint detectors.
	ModelFamilyKeypoint Family = "keypoint"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameSuperPoint is the name of the SuperPoint model.
	ModelNameSuperPoint Name = "superpoint"
)

// BaseModel describes a model and the tensors it exchanges with the runtime.
type BaseModel struct {
	Name    Name     `json:"name" yaml:"name"`
	Family  Family   `json:"family" yaml:"family"`
	Path    string   `json:"path" yaml:"path"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
	Outputs []string `json:"outputs" yaml:"outputs"`
	// InputShape is the NCHW shape of the single image input.
	InputShape []int64 `json:"input_shape" yaml:"input_shape"`
	// OutputShapes holds one shape per output, in Outputs order.
	OutputShapes [][]int64 `json:"output_shapes" yaml:"output_shapes"`
}

// Outputs holds the raw tensors produced by a forward pass.
type Outputs struct {
	// Semi is the detector head output, [1, 65, Hc, Wc].
	Semi tensor.Tensor
	// Desc is the descriptor head output, [1, C, Hc, Wc].
	Desc tensor.Tensor
}

// Model converts images into model inputs and model outputs into keypoints.
type Model interface {
	Options() BaseModel
	PreProcess(img image.Image) ([]float32, error)
	PostProcess(ctx context.Context, outputs Outputs, config postprocess.Config) (*postprocess.Result, error)
}

// HeatmapModel is implemented by models that can decode a dense detection
// probability grid from their outputs.
type HeatmapModel interface {
	Heatmap(outputs Outputs) (postprocess.Heatmap, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name    Name     `json:"name" yaml:"name"`
	Path    string   `json:"path" yaml:"path"`
	Family  Family   `json:"family" yaml:"family"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
	Outputs []string `json:"outputs" yaml:"outputs"`
	// Width and Height are the model input size. Both must be multiples of
	// the model cell size.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	// RawPixels feeds 0-255 intensities instead of scaling them to [0, 1].
	RawPixels bool `json:"raw_pixels" yaml:"raw_pixels"`
}
