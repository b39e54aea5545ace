package deepfake

import (
	"context"
	"fmt"
	"log/slog"
)

// DirectBackend is the fallback backend: it loads the model artifact itself
// (see Model) and runs the forward pass in-process.
type DirectBackend struct {
	FakeThreshold float64      // default: DefaultFakeThreshold
	FakeChannel   *int         // nil = DefaultFakeChannel; model labels take precedence
	Logger        *slog.Logger // nil = discard
}

// Name implements Backend.
func (b *DirectBackend) Name() string { return "direct" }

// Open implements Backend.
func (b *DirectBackend) Open(_ context.Context, modelPath string) (Detector, error) {
	m, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}

	threshold := b.FakeThreshold
	if threshold <= 0 {
		threshold = DefaultFakeThreshold
	}
	fallback := DefaultFakeChannel
	if b.FakeChannel != nil {
		fallback = *b.FakeChannel
	}

	h, w := m.InputSize()
	d := &directDetector{
		model:     m,
		threshold: threshold,
		channel:   m.FakeChannel(fallback),
		logger:    orDiscard(b.Logger),
	}
	d.logger.Debug("deepfake: model loaded", "model", m.Name, "height", h, "width", w,
		"outputs", m.Outputs(), "fake_channel", d.channel)
	return d, nil
}

type directDetector struct {
	model     *Model
	threshold float64
	channel   int
	logger    *slog.Logger
}

// PredictSingle implements Detector.
func (d *directDetector) PredictSingle(ctx context.Context, imagePath string) (*Prediction, error) {
	h, w := d.model.InputSize()
	in, err := LoadImageTensor(imagePath, w, h)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := d.model.Predict(in)
	if err != nil {
		return nil, err
	}

	prob, err := FakeProbability(out.Sample(0), d.channel)
	if err != nil {
		return nil, err
	}
	if !finite(prob) {
		return nil, fmt.Errorf("model produced a non-finite score: %v", prob)
	}
	return Classify(prob, d.threshold), nil
}

// FakeProbability picks the fake probability out of one output row: a single
// channel is the probability itself, otherwise channel is read.
func FakeProbability(row []float64, channel int) (float64, error) {
	switch {
	case len(row) == 1:
		return row[0], nil
	case channel >= 0 && channel < len(row):
		return row[channel], nil
	default:
		return 0, fmt.Errorf("fake channel %d out of range for %d outputs", channel, len(row))
	}
}

// Classify turns a fake probability into a prediction: fake when prob is at
// least threshold, with the confidence of the chosen class.
func Classify(prob, threshold float64) *Prediction {
	if prob >= threshold {
		return &Prediction{Label: LabelFake, Confidence: prob, Probability: prob}
	}
	return &Prediction{Label: LabelReal, Confidence: 1 - prob, Probability: prob}
}
