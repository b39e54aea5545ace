package deepfake

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// makePNG returns a valid PNG of the given dimensions filled with c.
func makePNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("makePNG: " + err.Error())
	}
	return buf.Bytes()
}

// writeFile writes data to name inside dir and returns the full path.
func writeFile(t *testing.T, dir, name string, data []byte, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// writeImage writes a small solid PNG and returns its path.
func writeImage(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "face.png", makePNG(32, 24, color.RGBA{R: 200, G: 120, B: 40, A: 255}), 0o644)
}

// constantModel returns a model whose outputs are always bias, whatever the
// input: pooling followed by a dense layer with a zero kernel.
func constantModel(size int, labels []string, bias ...float64) Model {
	kernel := make([][]float64, rgbChannels)
	for i := range kernel {
		kernel[i] = make([]float64, len(bias))
	}
	return Model{
		Name:       "constant",
		InputShape: []*int{nil, &size, &size, ptr(rgbChannels)},
		Labels:     labels,
		Layers: []Layer{
			{Type: LayerGlobalPool},
			{Type: LayerDense, Kernel: kernel, Bias: bias},
		},
	}
}

// writeModel stores m as JSON in dir and returns the path.
func writeModel(t *testing.T, dir string, m Model) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	return writeFile(t, dir, "model.json", data, 0o644)
}

// writeScript writes an executable shell script entry point under dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell entry points need a POSIX shell")
	}
	return writeFile(t, dir, name, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
}

func ptr[T any](v T) *T { return &v }

func approx(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}
