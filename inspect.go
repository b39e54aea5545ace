package deepfake

import (
	"bytes"
	"context"
	"image"
	"os"
)

// InspectionResult is the JSON object written by the inspect command.
type InspectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Format  string `json:"format,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Fingerprint
	Metadata   *ImageMetadata `json:"metadata,omitempty"`
	Generator  string         `json:"generator,omitempty"`
	AIMetadata bool           `json:"ai_metadata"`
}

// ExitCode is 0 for a successful result and 1 otherwise.
func (r InspectionResult) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// Inspect reports the format, size, perceptual hashes and provenance
// metadata of the image at imagePath. Metadata is best-effort: an image
// without any is still a success.
func (cfg *Config) Inspect(ctx context.Context, imagePath string) InspectionResult {
	cfg.defaults()

	if !exists(imagePath) {
		err := &PathNotFoundError{Kind: "Image", Path: imagePath}
		return InspectionResult{Error: err.Error()}
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return InspectionResult{Error: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return InspectionResult{Error: err.Error()}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return InspectionResult{Error: "decode " + imagePath + ": " + err.Error()}
	}

	meta := ExtractImageMetadata(data)
	generator := GeneratorByMetadata(meta)
	b := img.Bounds()

	res := InspectionResult{
		Success:     true,
		Format:      format,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Fingerprint: FingerprintImage(img),
		Metadata:    meta,
		Generator:   generator,
		AIMetadata:  generator != "",
	}
	cfg.Logger.Debug("deepfake: image inspected", "path", imagePath, "format", format,
		"dhash", res.DHash, "generator", generator)
	return res
}
