package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CUDAProviderBackend uses NVIDIA CUDA for inference.
	CUDAProviderBackend ProviderBackend = "cuda"
)

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"deviceID" yaml:"deviceID"`
	// Whether to do copies in the default stream or use separate streams.
	DoCopyInDefaultStream bool `json:"doCopyInDefaultStream" yaml:"doCopyInDefaultStream"`
	// The size limit of the device memory arena in bytes. Zero keeps the
	// runtime default.
	GPUMemLimit int64 `json:"gpuMemLimit" yaml:"gpuMemLimit"`
	// The strategy for extending the device memory arena.
	// 0: kNextPowerOfTwo
	// 1: kSameAsRequested
	ArenaExtendStrategy int `json:"arenaExtendStrategy" yaml:"arenaExtendStrategy"`
	// The type of search done for cuDNN convolution algorithms.
	// 0: EXHAUSTIVE, 1: HEURISTIC, 2: DEFAULT
	CudnnConvAlgoSearch int `json:"cudnnConvAlgoSearch" yaml:"cudnnConvAlgoSearch"`
	// Allow TF32 math on Ampere and newer GPUs.
	UseTF32 bool `json:"useTF32" yaml:"useTF32"`
}

var cudnnSearch = []string{"EXHAUSTIVE", "HEURISTIC", "DEFAULT"}

// optionMap renders the options with the key names ONNX Runtime expects.
func (o CUDAOptions) optionMap() map[string]string {
	m := map[string]string{
		"device_id":                 fmt.Sprintf("%d", o.DeviceID),
		"do_copy_in_default_stream": boolFlag(o.DoCopyInDefaultStream),
		"use_tf32":                  boolFlag(o.UseTF32),
	}
	if o.GPUMemLimit > 0 {
		m["gpu_mem_limit"] = fmt.Sprintf("%d", o.GPUMemLimit)
	}
	if o.ArenaExtendStrategy == 1 {
		m["arena_extend_strategy"] = "kSameAsRequested"
	} else {
		m["arena_extend_strategy"] = "kNextPowerOfTwo"
	}
	if o.CudnnConvAlgoSearch >= 0 && o.CudnnConvAlgoSearch < len(cudnnSearch) {
		m["cudnn_conv_algo_search"] = cudnnSearch[o.CudnnConvAlgoSearch]
	}
	return m
}

// ToNativeProviderOptions converts the CUDA options into native provider
// options. The caller must Destroy the result.
func (o CUDAOptions) ToNativeProviderOptions() (*ort.CUDAProviderOptions, error) {
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, err
	}
	if err := opts.Update(o.optionMap()); err != nil {
		opts.Destroy()
		return nil, err
	}
	return opts, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
