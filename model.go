package deepfake

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Tensor is a dense row-major array. Shape[0] is the batch dimension.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float64, n)}
}

// Sample returns the flat values of batch entry i.
func (t *Tensor) Sample(i int) []float64 {
	n := len(t.Data) / t.Shape[0]
	return t.Data[i*n : (i+1)*n]
}

// foreignModelExts are artifact formats the direct backend cannot load.
var foreignModelExts = []string{".h5", ".hdf5", ".keras", ".onnx", ".pb", ".tflite", ".pt", ".pth", ".safetensors"}

// Model is a sequential classifier exported as JSON:
//
//	{
//	  "name": "efficientnet-head",
//	  "input_shape": [null, 224, 224, 3],
//	  "labels": ["real", "fake"],
//	  "layers": [
//	    {"type": "global_average_pooling2d"},
//	    {"type": "dense", "kernel": [[...], ...], "bias": [...], "activation": "softmax"}
//	  ]
//	}
//
// input_shape follows the Keras convention with a leading batch dimension.
type Model struct {
	Name       string   `json:"name,omitempty"`
	InputShape []*int   `json:"input_shape"`
	Labels     []string `json:"labels,omitempty"`
	Layers     []Layer  `json:"layers"`

	outputs int
}

// LoadModel reads and validates the model artifact at path.
func LoadModel(path string) (*Model, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(foreignModelExts, ext) {
		return nil, fmt.Errorf("unsupported model format %q: the direct backend loads JSON models", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("load model %s: %w", filepath.Base(path), err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("load model %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}

// InputSize returns the spatial input dimensions declared by the model.
func (m *Model) InputSize() (height, width int) {
	return *m.InputShape[1], *m.InputShape[2]
}

// Outputs returns the number of output channels.
func (m *Model) Outputs() int { return m.outputs }

// FakeChannel returns the index of the "fake" label, or fallback when the
// model declares no such label.
func (m *Model) FakeChannel(fallback int) int {
	for i, l := range m.Labels {
		if strings.EqualFold(l, LabelFake) {
			return i
		}
	}
	return fallback
}

// Predict runs the forward pass on an [N, H, W, 3] batch and returns an
// [N, outputs] tensor.
func (m *Model) Predict(in *Tensor) (*Tensor, error) {
	h, w := m.InputSize()
	want := []int{h, w, rgbChannels}
	if len(in.Shape) != 4 || !slices.Equal(in.Shape[1:], want) { //nolint:mnd // batch + HWC
		return nil, fmt.Errorf("input shape %v does not match model input %v", in.Shape, want)
	}

	n := in.Shape[0]
	out := NewTensor(n, m.outputs)
	for i := range n {
		v, shape := in.Sample(i), want
		for j, l := range m.Layers {
			var err error
			v, shape, err = l.apply(v, shape)
			if err != nil {
				return nil, fmt.Errorf("layer %d (%s): %w", j, l.Type, err)
			}
		}
		copy(out.Sample(i), v)
	}
	return out, nil
}

func (m *Model) validate() error {
	if len(m.InputShape) != 4 { //nolint:mnd // batch + HWC
		return fmt.Errorf("input_shape must have 4 dimensions, got %d", len(m.InputShape))
	}
	for i, d := range m.InputShape[1:] {
		if d == nil || *d <= 0 {
			return fmt.Errorf("input_shape dimension %d is not a fixed positive size", i+1)
		}
	}
	if c := *m.InputShape[3]; c != rgbChannels {
		return fmt.Errorf("input_shape must have %d channels, got %d", rgbChannels, c)
	}
	if len(m.Layers) == 0 {
		return errors.New("model has no layers")
	}

	h, w := m.InputSize()
	shape := []int{h, w, rgbChannels}
	for i, l := range m.Layers {
		next, err := l.outputShape(shape)
		if err != nil {
			return fmt.Errorf("layer %d (%s): %w", i, l.Type, err)
		}
		shape = next
	}
	if len(shape) != 1 {
		return fmt.Errorf("model output must be a vector, got shape %v", shape)
	}
	if len(m.Labels) > 0 && len(m.Labels) != shape[0] {
		return fmt.Errorf("%d labels for %d output channels", len(m.Labels), shape[0])
	}
	m.outputs = shape[0]
	return nil
}
