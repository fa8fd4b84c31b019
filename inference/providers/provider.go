// Package providers - ONNX Runtime execution provider configuration.
package providers

import (
	"github.com/pkg/errors"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend uses the default ONNX Runtime CPU kernels.
	CPUProviderBackend ProviderBackend = "cpu"
)

// Backends lists every supported backend.
var Backends = []ProviderBackend{CPUProviderBackend, CUDAProviderBackend, CoreMLProviderBackend, OpenVINOProviderBackend}

// Config selects an execution provider and tunes the session around it.
type Config struct {
	// Backend specifies the execution provider.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// CUDA holds the options for the CUDA backend.
	CUDA *CUDAOptions `json:"cuda,omitempty" yaml:"cuda,omitempty"`
	// CoreML holds the options for the CoreML backend.
	CoreML *CoreMLOptions `json:"coreml,omitempty" yaml:"coreml,omitempty"`
	// OpenVINO holds the options for the OpenVINO backend.
	OpenVINO *OpenVINOOptions `json:"openvino,omitempty" yaml:"openvino,omitempty"`
	// Optimization tunes the graph and threading of the session.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`
	// LibraryPath overrides GetSharedLibPath.
	LibraryPath string `json:"library_path" yaml:"library_path"`
}

// DefaultConfig returns a CPU configuration with the default optimizations.
//
// @example
// config := DefaultConfig()
// config.Backend = CUDAProviderBackend
func DefaultConfig() Config {
	return Config{
		Backend:      CPUProviderBackend,
		Optimization: DefaultOptimizationConfig(),
	}
}

// Validate checks that the backend is known and its options are usable.
func (c Config) Validate() error {
	switch c.Backend {
	case CPUProviderBackend, CUDAProviderBackend, CoreMLProviderBackend:
	case OpenVINOProviderBackend:
		if c.OpenVINO != nil && !c.OpenVINO.Precision.Valid() {
			return errors.Errorf("unknown OpenVINO precision %q", c.OpenVINO.Precision)
		}
	case "":
		return errors.New("backend is required")
	default:
		return errors.Errorf("unsupported provider backend: %s", c.Backend)
	}
	return c.Optimization.Validate()
}

// SharedLibPath returns LibraryPath or the platform default.
func (c Config) SharedLibPath() (string, error) {
	if c.LibraryPath != "" {
		return c.LibraryPath, nil
	}
	return GetSharedLibPath()
}
