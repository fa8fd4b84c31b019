// Package inference - Inference sessions.
package inference

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/nvr-ai/go-superpoint/inference/providers"
	"github.com/nvr-ai/go-superpoint/models/model"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

var envMu sync.Mutex

// Session represents a model session from the onnxruntime with preallocated
// input and output tensors. It implements Runner; calls to Run are
// serialized because the bound tensors are shared.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
	logger  *zap.Logger

	runs  int64
	total time.Duration
}

// SessionMetrics summarizes the forward passes executed by a Session.
type SessionMetrics struct {
	Runs    int64
	Total   time.Duration
	Average time.Duration
}

// NewSession creates a new ONNX Runtime session for a model.
//
// Order of operations:
//  1. Library path check: Ensures the native runtime is accessible.
//  2. Environment setup: Loads the library once per process.
//  3. Tensor allocation: Prepares fixed-shape buffers for the input and both heads.
//  4. Session options: Threading, graph optimization and the execution provider.
//  5. Session creation: Loads the model and binds the tensors.
//
// Arguments:
//   - config: The execution provider configuration.
//   - m: The model description; InputShape and OutputShapes size the tensors.
//   - logger: Receives session lifecycle logs. Nil disables logging.
//
// Returns:
//   - *Session: The session. Close must be called to release it.
//   - error: An error if the session creation fails.
func NewSession(config providers.Config, m model.BaseModel, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(m.Inputs) != 1 || len(m.Outputs) != 2 || len(m.OutputShapes) != 2 {
		return nil, errors.Errorf("model %s must declare 1 input and 2 shaped outputs", m.Name)
	}

	libPath, err := config.SharedLibPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}
	if err := initializeEnvironment(libPath); err != nil {
		return nil, err
	}

	s := &Session{logger: logger}
	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(m.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	for _, shape := range m.OutputShapes {
		out, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "error creating output tensor")
		}
		s.outputs = append(s.outputs, out)
	}

	options, err := providers.SessionOptions(config)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSession(
		m.Path,
		m.Inputs,
		m.Outputs,
		[]ort.Value{s.input},
		[]ort.Value{s.outputs[0], s.outputs[1]},
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	logger.Info("onnx session created",
		zap.String("model", m.Path),
		zap.String("backend", string(config.Backend)),
		zap.Int64s("input_shape", m.InputShape),
	)
	return s, nil
}

func initializeEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// Run copies input into the bound input tensor, executes the session and
// returns copies of both heads.
func (s *Session) Run(ctx context.Context, input []float32) (model.Outputs, error) {
	if err := ctx.Err(); err != nil {
		return model.Outputs{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.Outputs{}, errors.New("session is closed")
	}

	dst := s.input.GetData()
	if len(input) != len(dst) {
		return model.Outputs{}, errors.Errorf("input holds %d floats, the model needs %d", len(input), len(dst))
	}
	copy(dst, input)

	start := time.Now()
	if err := s.session.Run(); err != nil {
		return model.Outputs{}, errors.Wrap(err, "error running ORT session")
	}
	elapsed := time.Since(start)
	s.runs++
	s.total += elapsed
	s.logger.Debug("forward pass", zap.Duration("elapsed", elapsed))

	return model.Outputs{
		Semi: toTensor(s.outputs[0].GetData(), s.outputs[0].GetShape()),
		Desc: toTensor(s.outputs[1].GetData(), s.outputs[1].GetShape()),
	}, nil
}

// toTensor copies ORT output data into a dense tensor of the same shape.
func toTensor(data []float32, shape ort.Shape) *tensor.Dense {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(append([]float32(nil), data...)))
}

// Metrics returns the forward pass counters.
func (s *Session) Metrics() SessionMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := SessionMetrics{Runs: s.runs, Total: s.total}
	if s.runs > 0 {
		m.Average = s.total / time.Duration(s.runs)
	}
	return m
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = multierr.Append(err, errors.Wrap(s.session.Destroy(), "error destroying ORT session"))
		s.session = nil
	}
	if s.input != nil {
		err = multierr.Append(err, s.input.Destroy())
		s.input = nil
	}
	for _, out := range s.outputs {
		err = multierr.Append(err, out.Destroy())
	}
	s.outputs = nil
	return err
}
