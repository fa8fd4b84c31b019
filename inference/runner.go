// Package inference - Forward pass runners and the keypoint engine.
package inference

import (
	"context"

	"github.com/nvr-ai/go-superpoint/models/model"
)

// Runner executes the network forward pass for one preprocessed image.
type Runner interface {
	// Run feeds input, laid out as the model's input shape, through the
	// network and returns the raw heads.
	Run(ctx context.Context, input []float32) (model.Outputs, error)
	// Close releases native resources.
	Close() error
}

// MetricsReporter is implemented by runners that count their forward passes.
// Session is one.
type MetricsReporter interface {
	Metrics() SessionMetrics
}

// Metrics returns the forward pass counters of the runner behind e. The
// second result is false when the runner keeps none.
func Metrics(e Engine) (SessionMetrics, bool) {
	if r, ok := e.(MetricsReporter); ok {
		return r.Metrics(), true
	}
	if en, ok := e.(*engine); ok {
		if r, ok := en.runner.(MetricsReporter); ok {
			return r.Metrics(), true
		}
	}
	return SessionMetrics{}, false
}
