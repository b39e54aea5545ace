package deepfake

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultFakeThreshold is the probability at or above which the direct
	// backend reports an image as fake.
	DefaultFakeThreshold = 0.5

	// DefaultFakeChannel is the output channel read as the fake probability
	// when a model has more than one output channel and declares no labels.
	DefaultFakeChannel = 1

	// DefaultProjectEntrypoint is the project-relative path of the primary
	// backend's prediction executable.
	DefaultProjectEntrypoint = "bin/predict"
)

// Prediction is the raw outcome of one backend call, before normalization.
type Prediction struct {
	Label       string  // e.g. "fake", "real", or whatever the backend reports
	Confidence  float64 // certainty of Label, 0..1
	Probability float64 // fake probability, 0..1
}

// Detector runs single-image inference against an already loaded model.
type Detector interface {
	PredictSingle(ctx context.Context, imagePath string) (*Prediction, error)
}

// Backend constructs a Detector from a model artifact path.
// Open or PredictSingle return an error wrapping ErrBackendUnavailable when
// the backend cannot serve at all; Detect then moves on to the next backend.
type Backend interface {
	Name() string
	Open(ctx context.Context, modelPath string) (Detector, error)
}

// Config holds all dependencies injected by the consumer.
type Config struct {
	// Backends are tried in order. Empty means DefaultBackends.
	Backends []Backend

	ProjectRoot       string  // primary backend root (empty = primary unavailable)
	ProjectEntrypoint string  // default: DefaultProjectEntrypoint
	FakeThreshold     float64 // default: DefaultFakeThreshold
	FakeChannel       *int    // nil = DefaultFakeChannel; 0 is a valid channel

	// Logger receives all diagnostics, including backend chatter.
	// nil = discard.
	Logger *slog.Logger

	// Optional callbacks for metrics/logging.
	OnPanic   func(tag string, r any)
	OnAttempt func(AttemptEvent)
}

// AttemptEvent describes one backend attempt made by Detect.
type AttemptEvent struct {
	Backend  string
	Outcome  string // "unavailable", "success" or "failure"
	Err      error
	Duration time.Duration
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.ProjectEntrypoint == "" {
		c.ProjectEntrypoint = DefaultProjectEntrypoint
	}
	if c.FakeThreshold <= 0 {
		c.FakeThreshold = DefaultFakeThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if len(c.Backends) == 0 {
		c.Backends = c.DefaultBackends()
	}
}

// DefaultBackends returns the project backend followed by the direct backend,
// both configured from cfg.
func (c *Config) DefaultBackends() []Backend {
	return []Backend{c.ProjectBackend(), c.DirectBackend()}
}

// ProjectBackend returns the primary backend configured from cfg.
func (c *Config) ProjectBackend() *ProjectBackend {
	return &ProjectBackend{
		Root:       c.ProjectRoot,
		Entrypoint: c.ProjectEntrypoint,
		Logger:     c.Logger,
	}
}

// DirectBackend returns the fallback backend configured from cfg.
func (c *Config) DirectBackend() *DirectBackend {
	return &DirectBackend{
		FakeThreshold: c.FakeThreshold,
		FakeChannel:   c.FakeChannel,
		Logger:        c.Logger,
	}
}
