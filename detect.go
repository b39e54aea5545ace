package deepfake

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBackendUnavailable marks a backend that cannot serve this
	// invocation at all. Detect silently moves to the next backend.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNullResult is returned when a backend ran but produced no result.
	ErrNullResult = errors.New("Failed to process image") //nolint:stylecheck,revive // wire text shown to callers

	// ErrNoBackend is reported when every configured backend was unavailable.
	ErrNoBackend = errors.New("no inference backend available")
)

// Detect validates the input paths and runs the configured backends in order
// until one of them is available. It always returns a result; failures are
// encoded in the result rather than returned as errors.
//
// Pipeline stages:
//  1. ValidatePaths: image, then model, must exist
//  2. for each backend: Open, PredictSingle
//  3. ErrBackendUnavailable → next backend; anything else is final
//  4. Succeeded / Failed normalization
func (cfg *Config) Detect(ctx context.Context, imagePath, modelPath string) DetectionResult {
	cfg.defaults()

	if err := ValidatePaths(imagePath, modelPath); err != nil {
		cfg.Logger.Debug("deepfake: input rejected", "error", err.Error())
		return Rejected(err)
	}
	probeImage(cfg.Logger, imagePath)

	for _, b := range cfg.Backends {
		start := time.Now()
		p, err := cfg.attempt(ctx, b, imagePath, modelPath)
		ev := AttemptEvent{Backend: b.Name(), Err: err, Duration: time.Since(start)}

		switch {
		case errors.Is(err, ErrBackendUnavailable):
			ev.Outcome = "unavailable"
			cfg.notify(ev)
			cfg.Logger.Debug("deepfake: backend unavailable", "backend", b.Name(), "reason", err.Error())
			continue
		case err != nil:
			ev.Outcome = "failure"
			cfg.notify(ev)
			cfg.Logger.Warn("deepfake: inference failed", "backend", b.Name(), "error", err.Error())
			return Failed(err)
		}

		res := Succeeded(p, modelPath)
		ev.Outcome = "success"
		if !res.Success {
			ev.Outcome = "failure"
		}
		cfg.notify(ev)
		cfg.Logger.Debug("deepfake: inference done", "backend", b.Name(),
			"prediction", res.Prediction, "duration", ev.Duration)
		return res
	}

	cfg.Logger.Warn("deepfake: no backend could serve", "backends", len(cfg.Backends))
	return Failed(ErrNoBackend)
}

// attempt opens b and runs a single prediction. A nil prediction without an
// error is reported as ErrNullResult. Panics are recovered into errors.
func (cfg *Config) attempt(ctx context.Context, b Backend, imagePath, modelPath string) (p *Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cfg.OnPanic != nil {
				cfg.OnPanic("backend:"+b.Name(), r)
			}
			p, err = nil, fmt.Errorf("%s backend panicked: %v", b.Name(), r)
		}
	}()

	det, err := b.Open(ctx, modelPath)
	if err != nil {
		return nil, err
	}
	p, err = det.PredictSingle(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNullResult
	}
	return p, nil
}

func (cfg *Config) notify(ev AttemptEvent) {
	if cfg.OnAttempt != nil {
		cfg.OnAttempt(ev)
	}
}
