package deepfake

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := writeImage(t, dir)
	model := writeFile(t, dir, "model.h5", []byte("weights"), 0o644)
	missing := filepath.Join(dir, "missing")

	tests := []struct {
		name     string
		image    string
		model    string
		wantKind string
		wantPath string
	}{
		{name: "both exist", image: img, model: model},
		{name: "directory model counts as existing", image: img, model: dir},
		{name: "missing image", image: missing, model: model, wantKind: "Image", wantPath: missing},
		{name: "missing image reported before model", image: missing, model: missing, wantKind: "Image", wantPath: missing},
		{name: "missing model", image: img, model: missing, wantKind: "Model", wantPath: missing},
		{name: "empty image path", image: "", model: model, wantKind: "Image", wantPath: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePaths(tc.image, tc.model)
			if tc.wantKind == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var nf *PathNotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("err = %v, want *PathNotFoundError", err)
			}
			if nf.Kind != tc.wantKind || nf.Path != tc.wantPath {
				t.Errorf("got %s %q, want %s %q", nf.Kind, nf.Path, tc.wantKind, tc.wantPath)
			}
			if want := tc.wantKind + " not found: " + tc.wantPath; err.Error() != want {
				t.Errorf("Error() = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestProbeImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	probeImage(logger, writeImage(t, dir))
	if !strings.Contains(logs.String(), "format=png") || !strings.Contains(logs.String(), "width=32") {
		t.Errorf("probe log = %q", logs.String())
	}

	logs.Reset()
	probeImage(logger, writeFile(t, dir, "x.bin", []byte("zzz"), 0o644))
	if !strings.Contains(logs.String(), "not decodable") {
		t.Errorf("probe log = %q", logs.String())
	}
}
