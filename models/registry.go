// Package models - registry for models.
package models

import (
	"github.com/nvr-ai/go-superpoint/models/model"
	"github.com/nvr-ai/go-superpoint/models/superpoint"
	"github.com/pkg/errors"
)

// NewModel creates a new keypoint model instance based on the specified model name.
//
// This factory function is the primary entry point for model creation,
// routing requests to the model-specific constructors behind the unified
// model.Model interface.
//
// Arguments:
//   - args: Configuration parameters specifying the model name, location and input size.
//
// Returns:
//   - model.Model: A configured model instance implementing the Model interface.
//   - error: An error if model creation fails or the model name is unsupported.
//
// Example:
//
// ```go
//
//	m, err := NewModel(model.NewModelArgs{
//	    Name: model.ModelNameSuperPoint,
//	    Path: "/models/superpoint.onnx",
//	})
//
//	if err != nil {
//	    log.Fatalf("Failed to create model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameSuperPoint, "":
		m, err := superpoint.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Errorf("unsupported model name: %s", args.Name)
	}
}
