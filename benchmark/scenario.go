package benchmark

import (
	"fmt"
)

// Resolution is the size images are resized to before detection. A zero
// resolution keeps the corpus images as they are.
type Resolution struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Name   string `json:"name" yaml:"name"`
}

// CommonResolutions are the camera sizes benchmarked by default.
var CommonResolutions = []Resolution{
	{Width: 320, Height: 240, Name: "320x240"},
	{Width: 640, Height: 480, Name: "640x480"},
	{Width: 1280, Height: 720, Name: "1280x720"},
	{Width: 1920, Height: 1080, Name: "1920x1080"},
}

// Scenario defines a specific benchmark configuration.
type Scenario struct {
	Name       string     `json:"name" yaml:"name"`
	Resolution Resolution `json:"resolution" yaml:"resolution"`
	Iterations int        `json:"iterations" yaml:"iterations"`
	WarmupRuns int        `json:"warmup_runs" yaml:"warmup_runs"`
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a scenario of 100 iterations after 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the image resolution.
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = Resolution{
		Width:  width,
		Height: height,
		Name:   fmt.Sprintf("%dx%d", width, height),
	}
	return sb
}

// WithIterations sets the number of measured iterations.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ResolutionScenarios returns one scenario per resolution.
func ResolutionScenarios(resolutions []Resolution, iterations, warmups int) []Scenario {
	scenarios := make([]Scenario, 0, len(resolutions))
	for _, r := range resolutions {
		scenarios = append(scenarios, NewScenarioBuilder("superpoint-"+r.Name).
			WithResolution(r.Width, r.Height).
			WithIterations(iterations).
			WithWarmupRuns(warmups).
			Build())
	}
	return scenarios
}
