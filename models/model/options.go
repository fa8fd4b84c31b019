// Package model - Model options.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
package model

// Precision represents the inference precision requested from an execution
// provider.
type Precision string

const (
	// PrecisionAccuracy lets the provider pick the most accurate precision.
	// (OpenVINO's default input precision type.)
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 represents 32-bit floating point precision.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 represents 16-bit floating point precision.
	PrecisionFP16 Precision = "FP16"
)

// Valid reports whether p is a known precision. The empty value is valid and
// means the provider default.
func (p Precision) Valid() bool {
	switch p {
	case "", PrecisionAccuracy, PrecisionFP32, PrecisionFP16:
		return true
	}
	return false
}
