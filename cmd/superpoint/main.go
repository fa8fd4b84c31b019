// Command superpoint detects and describes keypoints in images with a
// SuperPoint ONNX model and writes annotated overlays.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-superpoint/benchmark"
	"github.com/nvr-ai/go-superpoint/config"
	"github.com/nvr-ai/go-superpoint/images"
	"github.com/nvr-ai/go-superpoint/inference"
	"github.com/nvr-ai/go-superpoint/matching"
	"github.com/nvr-ai/go-superpoint/models/postprocess"
	"github.com/nvr-ai/go-superpoint/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultOutputDir is where overlays are written in directory mode.
const DefaultOutputDir = "keypoints"

type options struct {
	configPath  string
	modelPath   string
	imagePath   string
	matchPath   string
	dir         string
	out         string
	heatmapPath string
	benchmark   int
	opencv      bool
	scored      bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&opts.modelPath, "model", "", "Path to the SuperPoint ONNX model (overrides the config)")
	flag.StringVar(&opts.imagePath, "image", "", "Path to the input image")
	flag.StringVar(&opts.matchPath, "match", "", "Second image to match against -image")
	flag.StringVar(&opts.dir, "dir", "", "Directory of images to process")
	flag.StringVar(&opts.out, "out", "", "Output image, or output directory with -dir")
	flag.StringVar(&opts.heatmapPath, "heatmap", "", "Write the detection heatmap of -image to this path")
	flag.IntVar(&opts.benchmark, "benchmark", 0, "Benchmark iterations per resolution over -dir instead of writing overlays")
	flag.BoolVar(&opts.opencv, "opencv", false, "Read and write images with OpenCV instead of the Go codecs")
	flag.BoolVar(&opts.scored, "scored", false, "Shade overlay markers by keypoint score")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("superpoint failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	if (opts.imagePath == "") == (opts.dir == "") {
		return errors.New("exactly one of -image or -dir is required")
	}
	if opts.benchmark > 0 && opts.dir == "" {
		return errors.New("-benchmark requires -dir")
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.modelPath != "" {
		cfg.Model.Path = opts.modelPath
	}

	engine, err := inference.NewEngineBuilder().
		WithModel(cfg.ModelArgs()).
		WithProvider(cfg.Model.Provider).
		WithConfig(cfg.Postprocess()).
		WithLogger(logger).
		Build()
	if err != nil {
		return errors.Wrap(err, "failed to build engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("failed to close engine", zap.Error(err))
		}
	}()

	if opts.benchmark > 0 {
		return runBenchmark(ctx, engine, opts, logger)
	}
	if opts.dir != "" {
		return runDirectory(ctx, engine, cfg, opts, logger)
	}
	return runImage(ctx, engine, cfg, opts, logger)
}

func runImage(ctx context.Context, engine inference.Engine, cfg *config.Config, opts options, logger *zap.Logger) error {
	img, err := loadImage(opts.imagePath, opts.opencv)
	if err != nil {
		return err
	}
	res, err := engine.Detect(ctx, img)
	if err != nil {
		return errors.Wrapf(err, "failed to detect keypoints in %s", opts.imagePath)
	}
	printSummary(opts.imagePath, res)

	if opts.heatmapPath != "" {
		h, err := engine.Heatmap(ctx, img)
		if err != nil {
			return err
		}
		if err := saveImage(opts.heatmapPath, images.HeatmapImage(h), opts.opencv); err != nil {
			return err
		}
		logger.Info("wrote heatmap", zap.String("path", opts.heatmapPath))
	}

	out := opts.out
	if out == "" {
		out = overlayPath(opts.imagePath, "")
	}

	if opts.matchPath == "" {
		if err := saveImage(out, overlay(img, res.Keypoints, cfg.Style(), opts.scored), opts.opencv); err != nil {
			return err
		}
		logger.Info("wrote overlay", zap.String("path", out))
		return nil
	}

	other, err := loadImage(opts.matchPath, opts.opencv)
	if err != nil {
		return err
	}
	otherRes, err := engine.Detect(ctx, other)
	if err != nil {
		return errors.Wrapf(err, "failed to detect keypoints in %s", opts.matchPath)
	}
	printSummary(opts.matchPath, otherRes)

	matches, err := matching.MatchKeypoints(res.Keypoints, otherRes.Keypoints, cfg.Matching)
	if err != nil {
		return err
	}
	fmt.Printf("matches: %d\n", len(matches))

	canvas := images.DrawMatches(img, other, res.Keypoints, otherRes.Keypoints, matches, cfg.Style())
	if err := saveImage(out, canvas, opts.opencv); err != nil {
		return err
	}
	logger.Info("wrote matches", zap.String("path", out), zap.Int("matches", len(matches)))
	return nil
}

func runDirectory(ctx context.Context, engine inference.Engine, cfg *config.Config, opts options, logger *zap.Logger) error {
	files, err := util.LoadDirectoryImageFiles(opts.dir)
	if err != nil {
		return err
	}
	outDir := opts.out
	if outDir == "" {
		outDir = DefaultOutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", outDir)
	}

	total := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := decodeFile(file, opts.opencv)
		if err != nil {
			logger.Warn("skipping undecodable image", zap.String("path", file.Path), zap.Error(err))
			continue
		}
		res, err := engine.Detect(ctx, img)
		if err != nil {
			return errors.Wrapf(err, "failed to detect keypoints in %s", file.Path)
		}
		printSummary(file.Path, res)
		total += len(res.Keypoints)

		out := overlayPath(file.Path, outDir)
		if err := saveImage(out, overlay(img, res.Keypoints, cfg.Style(), opts.scored), opts.opencv); err != nil {
			return err
		}
	}

	logSessionMetrics(engine, logger)
	logger.Info("processed directory",
		zap.String("dir", opts.dir),
		zap.Int("images", len(files)),
		zap.Int("keypoints", total),
	)
	return nil
}

func runBenchmark(ctx context.Context, engine inference.Engine, opts options, logger *zap.Logger) error {
	outDir := opts.out
	if outDir == "" {
		outDir = DefaultOutputDir
	}
	suite := benchmark.NewSuite(engine, outDir, logger)
	if err := suite.LoadCorpus(opts.dir); err != nil {
		return err
	}
	for _, s := range benchmark.ResolutionScenarios(benchmark.CommonResolutions, opts.benchmark, min(10, opts.benchmark)) {
		suite.AddScenario(s)
	}
	if err := suite.RunAllScenarios(ctx); err != nil {
		return err
	}
	for _, m := range suite.Results() {
		fmt.Printf("%-22s fps=%.1f p50=%s p95=%s keypoints=%.0f errors=%.2f\n",
			m.Scenario.Name, m.FramesPerSecond, m.Latency.P50, m.Latency.P95, m.MeanKeypoints, m.ErrorRate)
	}
	path, err := suite.SaveResults()
	if err != nil {
		return err
	}
	logger.Info("wrote benchmark results", zap.String("path", path))
	logSessionMetrics(engine, logger)
	return nil
}

// loadImage reads path with the Go codecs, or with OpenCV when opencv is
// set. Files the Go codecs reject are retried with OpenCV.
func loadImage(path string, opencv bool) (image.Image, error) {
	if opencv {
		return images.ReadMat(path, false)
	}
	img, err := images.Load(path)
	if err != nil {
		if fallback, merr := images.ReadMat(path, false); merr == nil {
			return fallback, nil
		}
		return nil, err
	}
	return img, nil
}

func saveImage(path string, img image.Image, opencv bool) error {
	if opencv {
		return images.WriteMat(path, img)
	}
	return images.Save(path, img)
}

// decodeFile decodes an image already read from a directory.
func decodeFile(file util.ImageFile, opencv bool) (image.Image, error) {
	if !opencv {
		img, _, err := image.Decode(bytes.NewReader(file.Data))
		if err == nil {
			return img, nil
		}
	}
	return loadImage(file.Path, true)
}

func overlay(img image.Image, kps []postprocess.Keypoint, style images.Style, scored bool) image.Image {
	if scored {
		return images.DrawScoredKeypoints(img, kps, style)
	}
	return images.DrawKeypoints(img, kps, style)
}

func logSessionMetrics(engine inference.Engine, logger *zap.Logger) {
	m, ok := inference.Metrics(engine)
	if !ok {
		return
	}
	logger.Info("session metrics",
		zap.Int64("runs", m.Runs),
		zap.Duration("total", m.Total),
		zap.Duration("average", m.Average),
	)
}

// overlayPath returns "<name>_keypoints.png" next to path, or inside dir
// when dir is set.
func overlayPath(path, dir string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_keypoints.png"
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, base)
}

func printSummary(path string, res *postprocess.Result) {
	fmt.Printf("%s: %d keypoints (candidates=%d kept=%d degenerate=%d)\n",
		path, len(res.Keypoints), res.Stats.Candidates, res.Stats.Kept, res.Stats.Degenerate)
	for i, k := range res.Keypoints {
		if i == 5 {
			fmt.Printf("  ...\n")
			break
		}
		fmt.Printf("  (%.1f, %.1f) score=%.4f\n", k.X, k.Y, k.Score)
	}
}
