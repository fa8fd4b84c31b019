package postprocess

import "fmt"

// ConfigurationError is returned when a pipeline parameter is invalid. It is
// detected before any computation starts.
type ConfigurationError struct {
	// Field is the name of the offending parameter.
	Field string
	// Value is the rejected value.
	Value interface{}
	// Reason says what was expected.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// DimensionMismatchError is returned when the probability grid and the
// descriptor field do not have compatible shapes.
type DimensionMismatchError struct {
	// Tensor names the input that failed the check ("heatmap" or "descriptors").
	Tensor string
	// Want is the expected shape or length.
	Want string
	// Got is the observed shape or length.
	Got string
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch in %s: want %s, got %s", e.Tensor, e.Want, e.Got)
}
