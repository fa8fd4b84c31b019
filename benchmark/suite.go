package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/nvr-ai/go-superpoint/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detector is the part of inference.Engine the suite measures.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (*postprocess.Result, error)
}

// Suite manages and executes benchmark scenarios
type Suite struct {
	detector  Detector
	outputDir string
	logger    *zap.Logger

	mu        sync.RWMutex
	scenarios []Scenario
	corpus    []image.Image
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - detector: The engine under test.
//   - outputDir: Where SaveResults writes its report.
//   - logger: Progress logger. Nil disables logging.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(detector Detector, outputDir string, logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		detector:  detector,
		outputDir: outputDir,
		logger:    logger,
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// SetCorpus replaces the benchmark images.
func (bs *Suite) SetCorpus(corpus []image.Image) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.corpus = corpus
}

// LoadCorpus decodes every image in dir into the corpus. Files that fail to
// decode are skipped.
func (bs *Suite) LoadCorpus(dir string) error {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return err
	}
	corpus := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			bs.logger.Warn("skipping corpus image", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		corpus = append(corpus, img)
	}
	if len(corpus) == 0 {
		return errors.Errorf("no valid images found in directory: %s", dir)
	}
	bs.SetCorpus(corpus)
	return nil
}

// RunScenario executes a single benchmark scenario. Corpus images are
// resized to the scenario resolution before the clock starts.
//
// Arguments:
//   - ctx: Cancels the run between iterations.
//   - scenario: The scenario to run.
//
// Returns:
//   - *PerformanceMetrics: The measurements.
//   - error: If the corpus is empty or ctx is cancelled.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	bs.mu.RLock()
	corpus := bs.corpus
	bs.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, errors.New("benchmark corpus is empty")
	}
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s needs at least one iteration", scenario.Name)
	}

	frames := resizeCorpus(corpus, scenario.Resolution)

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := bs.detector.Detect(ctx, frames[i%len(frames)]); err != nil {
			bs.logger.Debug("warmup failed", zap.Error(err))
		}
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	latencies := make([]time.Duration, 0, scenario.Iterations)
	keypoints := 0
	failures := 0
	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := time.Now()
		res, err := bs.detector.Detect(ctx, frames[i%len(frames)])
		if err != nil {
			failures++
			continue
		}
		latencies = append(latencies, time.Since(t))
		keypoints += len(res.Keypoints)
	}
	total := time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics := &PerformanceMetrics{
		Scenario:        scenario,
		Timestamp:       start,
		TotalDuration:   total,
		Latency:         latencyStats(latencies),
		FramesPerSecond: float64(len(latencies)) / total.Seconds(),
		KeypointCount:   keypoints,
		ErrorRate:       float64(failures) / float64(scenario.Iterations),
		MemoryStats: MemoryMetrics{
			AllocBytes:      endMem.Alloc,
			TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
			SysBytes:        endMem.Sys,
			NumGC:           endMem.NumGC - startMem.NumGC,
			HeapAllocBytes:  endMem.HeapAlloc,
		},
	}
	if len(latencies) > 0 {
		metrics.MeanKeypoints = float64(keypoints) / float64(len(latencies))
	}

	bs.mu.Lock()
	bs.results = append(bs.results, *metrics)
	bs.mu.Unlock()

	bs.logger.Info("scenario complete",
		zap.String("scenario", scenario.Name),
		zap.Float64("fps", metrics.FramesPerSecond),
		zap.Duration("p50", metrics.Latency.P50),
		zap.Duration("p95", metrics.Latency.P95),
		zap.Float64("mean_keypoints", metrics.MeanKeypoints),
		zap.Float64("error_rate", metrics.ErrorRate),
	)
	return metrics, nil
}

// RunAllScenarios runs every added scenario in order and stops at the first
// error.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.RLock()
	scenarios := append([]Scenario(nil), bs.scenarios...)
	bs.mu.RUnlock()

	for _, s := range scenarios {
		if _, err := bs.RunScenario(ctx, s); err != nil {
			return errors.Wrapf(err, "scenario %s", s.Name)
		}
	}
	return nil
}

// Results returns a copy of the collected measurements.
func (bs *Suite) Results() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]PerformanceMetrics(nil), bs.results...)
}

// SaveResults writes the collected measurements as indented JSON into the
// output directory and returns the file path.
func (bs *Suite) SaveResults() (string, error) {
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}
	data, err := json.MarshalIndent(bs.Results(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal results")
	}
	path := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write results")
	}
	return path, nil
}

func resizeCorpus(corpus []image.Image, r Resolution) []image.Image {
	if r.Width <= 0 || r.Height <= 0 {
		return corpus
	}
	frames := make([]image.Image, len(corpus))
	for i, img := range corpus {
		frames[i] = imaging.Resize(img, r.Width, r.Height, imaging.Lanczos)
	}
	return frames
}
