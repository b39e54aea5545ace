package deepfake

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openProject(t *testing.T, root string, logger *slog.Logger) Detector {
	t.Helper()
	b := &ProjectBackend{Root: root, Logger: logger}
	det, err := b.Open(context.Background(), filepath.Join(root, "weights.h5"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return det
}

func TestProjectBackend_Success(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, DefaultProjectEntrypoint, `
echo "Loading model..."
echo "tensorflow: oneDNN custom operations are on" >&2
echo '{"prediction": "Fake", "confidence": 0.87, "probability": 0.91}'`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := openProject(t, root, logger).PredictSingle(context.Background(), "/data/face.jpg")
	if err != nil {
		t.Fatalf("PredictSingle: %v", err)
	}
	if p.Label != "Fake" || p.Confidence != 0.87 || p.Probability != 0.91 {
		t.Errorf("prediction = %+v", p)
	}
	for _, want := range []string{"Loading model...", "oneDNN custom operations"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs missing %q:\n%s", want, logs.String())
		}
	}
}

func TestProjectBackend_Arguments(t *testing.T) {
	root := t.TempDir()
	// Echo the received arguments back as the prediction label.
	writeScript(t, root, DefaultProjectEntrypoint, `printf '{"prediction": "%s"}\n' "$*"`)

	p, err := openProject(t, root, nil).PredictSingle(context.Background(), "/data/face.jpg")
	if err != nil {
		t.Fatalf("PredictSingle: %v", err)
	}
	want := "--model " + filepath.Join(root, "weights.h5") + " --image /data/face.jpg --verbose=false"
	if p.Label != want {
		t.Errorf("arguments = %q, want %q", p.Label, want)
	}
}

func TestProjectBackend_Outcomes(t *testing.T) {
	tests := []struct {
		name            string
		script          string
		wantUnavailable bool
		wantErr         string
	}{
		{
			name:    "null result",
			script:  `echo null`,
			wantErr: "Failed to process image",
		},
		{
			name:    "no output",
			script:  `exit 0`,
			wantErr: "Failed to process image",
		},
		{
			name:            "interface unavailable",
			script:          `echo "ModuleNotFoundError: No module named 'src'" >&2; exit 3`,
			wantUnavailable: true,
		},
		{
			name:    "inference exception uses last stderr line",
			script:  `echo "Traceback (most recent call last):" >&2; echo "ValueError: cannot identify image file" >&2; exit 1`,
			wantErr: "ValueError: cannot identify image file",
		},
		{
			name:    "silent crash",
			script:  `exit 2`,
			wantErr: "project inference: exit status 2",
		},
		{
			name:    "not an object",
			script:  `echo '[0.2, 0.8]'`,
			wantErr: "invalid prediction output: expected a JSON object",
		},
		{
			name:    "numeric prediction",
			script:  `echo '{"prediction": 5, "confidence": 0.9}'`,
			wantErr: "invalid prediction output: prediction must be a string, got 5",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeScript(t, root, DefaultProjectEntrypoint, tc.script)

			_, err := openProject(t, root, nil).PredictSingle(context.Background(), "/data/face.jpg")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrBackendUnavailable); got != tc.wantUnavailable {
				t.Fatalf("errors.Is(err, ErrBackendUnavailable) = %v, want %v (err: %v)", got, tc.wantUnavailable, err)
			}
			if tc.wantErr != "" && err.Error() != tc.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestProjectBackend_OpenUnavailable(t *testing.T) {
	withScript := t.TempDir()
	writeFile(t, withScript, DefaultProjectEntrypoint, []byte("#!/bin/sh\n"), 0o644)

	tests := []struct {
		name string
		root string
	}{
		{name: "no root", root: ""},
		{name: "missing root", root: filepath.Join(t.TempDir(), "missing")},
		{name: "missing entry point", root: t.TempDir()},
		{name: "entry point not executable", root: withScript},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &ProjectBackend{Root: tc.root}
			_, err := b.Open(context.Background(), "model.h5")
			if !errors.Is(err, ErrBackendUnavailable) {
				t.Errorf("Open error = %v, want ErrBackendUnavailable", err)
			}
		})
	}
}

func TestProjectBackend_CustomEntrypoint(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "tools/infer.sh", `echo '{"prediction": "real", "confidence": 0.6}'`)

	b := &ProjectBackend{Root: root, Entrypoint: "tools/infer.sh"}
	det, err := b.Open(context.Background(), "model.h5")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p, err := det.PredictSingle(context.Background(), "img.png")
	if err != nil {
		t.Fatalf("PredictSingle: %v", err)
	}
	if p.Label != "real" || p.Confidence != 0.6 || p.Probability != 0 {
		t.Errorf("prediction = %+v", p)
	}
}

func TestProjectBackend_Timeout(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, DefaultProjectEntrypoint, `exec sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := openProject(t, root, nil).PredictSingle(ctx, "img.png")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestProjectBackend_TimeoutKillsChildren(t *testing.T) {
	root := t.TempDir()
	// The wrapper waits on a child instead of exec-ing it, so the child holds
	// the stdout pipe after the wrapper is gone.
	writeScript(t, root, DefaultProjectEntrypoint, `sleep 5
echo '{"prediction": "real", "confidence": 0.9}'`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := openProject(t, root, nil).PredictSingle(ctx, "img.png")
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("PredictSingle returned after %v, want well under the child's 5s", elapsed)
	}
}

func TestProjectBackend_EmptyPrediction(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, DefaultProjectEntrypoint, `echo '{"prediction": "", "confidence": 0.5}'`)

	cfg := &Config{ProjectRoot: root}
	cfg.Backends = []Backend{cfg.ProjectBackend()}

	img := writeImage(t, t.TempDir())
	got := cfg.Detect(context.Background(), img, img)
	if !got.Success || got.Prediction != "" || *got.IsFake {
		t.Errorf("Detect = %+v, want success with an empty prediction", got)
	}
}
