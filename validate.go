package deepfake

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PathNotFoundError reports an input path that does not exist.
type PathNotFoundError struct {
	Kind string // "Image" or "Model"
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Path)
}

// ValidatePaths checks that the image and then the model exist.
// The first missing path is returned as a *PathNotFoundError.
func ValidatePaths(imagePath, modelPath string) error {
	if !exists(imagePath) {
		return &PathNotFoundError{Kind: "Image", Path: imagePath}
	}
	if !exists(modelPath) {
		return &PathNotFoundError{Kind: "Model", Path: modelPath}
	}
	return nil
}

// exists reports whether path names any filesystem entry.
// Permission errors count as existing; the backend will surface them.
func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// probeImage logs the decoded format and dimensions of the image at path.
// It never fails: undecodable images are left for the backend to reject.
func probeImage(logger *slog.Logger, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	const decodeLimit = 256 * 1024
	cfg, format, err := image.DecodeConfig(io.LimitReader(f, decodeLimit))
	if err != nil {
		logger.Debug("deepfake: image header not decodable", "path", path, "error", err.Error())
		return
	}
	logger.Debug("deepfake: image probed", "path", path, "format", format, "width", cfg.Width, "height", cfg.Height)
}
