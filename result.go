package deepfake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Prediction labels written to DetectionResult.Prediction.
const (
	LabelReal    = "real"
	LabelFake    = "fake"
	LabelUnknown = "unknown"
	LabelError   = "error"
)

// DetectionResult is the single JSON object written per invocation.
// Field order matches the wire order expected by callers.
type DetectionResult struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
	Prediction string   `json:"prediction,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	RawScore   *float64 `json:"raw_score,omitempty"`
	IsFake     *bool    `json:"is_fake,omitempty"`
	Model      string   `json:"model,omitempty"`
}

// Failed builds the failure shape shared by every inference error:
// success=false, the error text, prediction "error" and confidence 0.
func Failed(err error) DetectionResult {
	zero := 0.0
	return DetectionResult{
		Success:    false,
		Error:      err.Error(),
		Prediction: LabelError,
		Confidence: &zero,
	}
}

// Rejected builds the reduced failure shape used before any inference was
// attempted (missing paths, bad flags): only success and error are set.
func Rejected(err error) DetectionResult {
	return DetectionResult{Success: false, Error: err.Error()}
}

// Succeeded normalizes a backend prediction: confidence becomes a
// percentage, is_fake is a case-insensitive match on "fake" and model is the
// base filename of modelPath. The label is passed through unchanged, even
// when empty.
func Succeeded(p *Prediction, modelPath string) DetectionResult {
	if p == nil {
		return Failed(ErrNullResult)
	}
	if !finite(p.Confidence) || !finite(p.Probability) {
		return Failed(fmt.Errorf("non-finite score (confidence=%v, probability=%v)", p.Confidence, p.Probability))
	}

	label := p.Label
	confidence := p.Confidence * 100 //nolint:mnd // fraction → percentage
	raw := p.Probability
	isFake := strings.EqualFold(label, LabelFake)

	return DetectionResult{
		Success:    true,
		Prediction: label,
		Confidence: &confidence,
		RawScore:   &raw,
		IsFake:     &isFake,
		Model:      filepath.Base(modelPath),
	}
}

// MarshalJSON writes prediction on every successful result, even when the
// backend reported an empty label. HTML characters are not escaped.
func (r DetectionResult) MarshalJSON() ([]byte, error) {
	type plain DetectionResult
	if !r.Success {
		return marshalRaw(plain(r))
	}
	return marshalRaw(struct {
		Success    bool     `json:"success"`
		Prediction string   `json:"prediction"`
		Confidence *float64 `json:"confidence,omitempty"`
		RawScore   *float64 `json:"raw_score,omitempty"`
		IsFake     *bool    `json:"is_fake,omitempty"`
		Model      string   `json:"model,omitempty"`
	}{r.Success, r.Prediction, r.Confidence, r.RawScore, r.IsFake, r.Model})
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ExitCode is 0 for a successful result and 1 otherwise.
func (r DetectionResult) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
