package deepfake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

const (
	// projectUnavailableExit is the exit status an entry point uses to say its
	// inference interface cannot be loaded (missing runtime, missing module).
	projectUnavailableExit = 3

	// projectWaitDelay bounds how long a cancelled entry point may keep its
	// output pipes open.
	projectWaitDelay = 500 * time.Millisecond
)

// ProjectBackend is the primary backend: an external inference project that
// ships an executable entry point. The entry point is invoked as
//
//	<entry> --model <model> --image <image> --verbose=false
//
// from the project root and prints its result mapping as the last line of
// stdout, e.g. {"prediction":"Fake","confidence":0.87,"probability":0.91}.
// All other output is treated as diagnostics and sent to Logger.
type ProjectBackend struct {
	Root       string       // project root; empty = unavailable
	Entrypoint string       // relative to Root unless absolute (default: DefaultProjectEntrypoint)
	Env        []string     // extra KEY=VALUE pairs for the entry point
	Logger     *slog.Logger // nil = discard
}

// Name implements Backend.
func (b *ProjectBackend) Name() string { return "project" }

// Open implements Backend. It resolves the entry point but does not run it.
func (b *ProjectBackend) Open(_ context.Context, modelPath string) (Detector, error) {
	if b.Root == "" {
		return nil, fmt.Errorf("%w: no project root configured", ErrBackendUnavailable)
	}

	entry := b.Entrypoint
	if entry == "" {
		entry = DefaultProjectEntrypoint
	}
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(b.Root, entry)
	}

	fi, err := os.Stat(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if !fi.Mode().IsRegular() || fi.Mode().Perm()&0o111 == 0 {
		return nil, fmt.Errorf("%w: %s is not an executable file", ErrBackendUnavailable, entry)
	}

	return &projectDetector{
		root:      b.Root,
		entry:     entry,
		modelPath: modelPath,
		env:       b.Env,
		logger:    orDiscard(b.Logger),
	}, nil
}

type projectDetector struct {
	root      string
	entry     string
	modelPath string
	env       []string
	logger    *slog.Logger
}

// PredictSingle implements Detector.
func (d *projectDetector) PredictSingle(ctx context.Context, imagePath string) (*Prediction, error) {
	cmd := exec.CommandContext(ctx, d.entry, //nolint:gosec // G204: entry point is operator-configured by design
		"--model", d.modelPath,
		"--image", imagePath,
		"--verbose=false",
	)
	cmd.Dir = d.root
	cmd.Env = append(os.Environ(), d.env...)
	cmd.WaitDelay = projectWaitDelay
	killProcessGroup(cmd)

	var stdout bytes.Buffer
	stderr := newLogSink(d.logger, "project", "stderr")
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stderr.Flush()
	if err != nil {
		return nil, d.runError(ctx, err, stderr.LastLine())
	}

	last, preamble := lastLine(stdout.Bytes())
	if len(preamble) > 0 {
		noise := newLogSink(d.logger, "project", "stdout")
		_, _ = noise.Write(preamble)
		noise.Flush()
	}
	return ParsePrediction(last)
}

func (d *projectDetector) runError(ctx context.Context, err error, lastStderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("project inference aborted: %w", ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == projectUnavailableExit {
			return fmt.Errorf("%w: entry point reported no inference interface: %s", ErrBackendUnavailable, lastStderr)
		}
		if lastStderr != "" {
			return errors.New(lastStderr)
		}
		return fmt.Errorf("project inference: %w", err)
	}

	// The entry point could not be started (missing interpreter, bad format).
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOEXEC) {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return fmt.Errorf("project inference: %w", err)
}
