package providers

import (
	"fmt"

	"github.com/nvr-ai/go-superpoint/models/model"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type, e.g. CPU, GPU or NPU.
	DeviceType string `json:"deviceType" yaml:"deviceType"`
	// Inference precision. Empty keeps the device default.
	Precision model.Precision `json:"precision" yaml:"precision"`
	// Overrides the accelerator default number of threads.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads"`
	// Overrides the accelerator default number of streams.
	NumStreams int `json:"numStreams" yaml:"numStreams"`
	// Rewrite dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disableDynamicShapes" yaml:"disableDynamicShapes"`
}

// optionMap renders the options with the key names ONNX Runtime expects.
// Unset values are left out so the provider keeps its defaults.
func (o OpenVINOOptions) optionMap() map[string]string {
	m := map[string]string{
		"disable_dynamic_shapes": fmt.Sprintf("%t", o.DisableDynamicShapes),
	}
	if o.DeviceType != "" {
		m["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		m["precision"] = string(o.Precision)
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = fmt.Sprintf("%d", o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		m["num_streams"] = fmt.Sprintf("%d", o.NumStreams)
	}
	return m
}
