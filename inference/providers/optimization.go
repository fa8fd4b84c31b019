// Package providers - ONNX Runtime session optimization settings.
package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// OptimizationConfig contains ONNX Runtime optimization settings.
type OptimizationConfig struct {
	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graph_optimization_level" yaml:"graph_optimization_level"`
	// ExecutionMode controls sequential vs parallel execution.
	ExecutionMode ort.ExecutionMode `json:"execution_mode" yaml:"execution_mode"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets the runtime decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`
	// EnableMemoryPattern enables memory pattern optimization.
	EnableMemoryPattern bool `json:"enable_memory_pattern" yaml:"enable_memory_pattern"`
	// EnableCPUMemArena enables the CPU memory arena.
	EnableCPUMemArena bool `json:"enable_cpu_mem_arena" yaml:"enable_cpu_mem_arena"`
}

// DefaultOptimizationConfig returns a production-ready optimization configuration.
func DefaultOptimizationConfig() OptimizationConfig {
	numCPU := runtime.NumCPU()
	return OptimizationConfig{
		GraphOptimizationLevel: ort.GraphOptimizationLevelEnableExtended,
		ExecutionMode:          ort.ExecutionModeSequential,
		IntraOpNumThreads:      max(1, numCPU/2),
		InterOpNumThreads:      1,
		EnableMemoryPattern:    true,
		EnableCPUMemArena:      true,
	}
}

// Validate checks the thread counts.
func (c OptimizationConfig) Validate() error {
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.Errorf("thread counts must be >= 0, got intra=%d inter=%d", c.IntraOpNumThreads, c.InterOpNumThreads)
	}
	return nil
}

// SessionOptions builds native session options for config, including the
// selected execution provider. The caller must Destroy the result.
//
// @example
// options, err := SessionOptions(DefaultConfig())
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// defer options.Destroy()
func SessionOptions(config Config) (*ort.SessionOptions, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	if err := applyOptimization(options, config.Optimization); err != nil {
		options.Destroy()
		return nil, err
	}
	if err := appendProvider(options, config); err != nil {
		options.Destroy()
		return nil, errors.Wrapf(err, "error enabling %s", config.Backend)
	}
	return options, nil
}

func applyOptimization(options *ort.SessionOptions, c OptimizationConfig) error {
	if err := options.SetGraphOptimizationLevel(c.GraphOptimizationLevel); err != nil {
		return errors.Wrap(err, "graph optimization level")
	}
	if err := options.SetExecutionMode(c.ExecutionMode); err != nil {
		return errors.Wrap(err, "execution mode")
	}
	if err := options.SetIntraOpNumThreads(c.IntraOpNumThreads); err != nil {
		return errors.Wrap(err, "intra-op threads")
	}
	if err := options.SetInterOpNumThreads(c.InterOpNumThreads); err != nil {
		return errors.Wrap(err, "inter-op threads")
	}
	if err := options.SetMemPattern(c.EnableMemoryPattern); err != nil {
		return errors.Wrap(err, "memory pattern")
	}
	if err := options.SetCpuMemArena(c.EnableCPUMemArena); err != nil {
		return errors.Wrap(err, "cpu memory arena")
	}
	return nil
}

func appendProvider(options *ort.SessionOptions, c Config) error {
	switch c.Backend {
	case CUDAProviderBackend:
		var o CUDAOptions
		if c.CUDA != nil {
			o = *c.CUDA
		}
		cuda, err := o.ToNativeProviderOptions()
		if err != nil {
			return err
		}
		defer cuda.Destroy()
		return options.AppendExecutionProviderCUDA(cuda)
	case CoreMLProviderBackend:
		var o CoreMLOptions
		if c.CoreML != nil {
			o = *c.CoreML
		}
		return options.AppendExecutionProviderCoreML(o.Flags())
	case OpenVINOProviderBackend:
		var o OpenVINOOptions
		if c.OpenVINO != nil {
			o = *c.OpenVINO
		}
		return options.AppendExecutionProviderOpenVINO(o.optionMap())
	}
	return nil
}
