package deepfake

import (
	"errors"
	"fmt"
	"math"
)

// Layer types understood by Model.
const (
	LayerFlatten    = "flatten"
	LayerGlobalPool = "global_average_pooling2d"
	LayerDense      = "dense"
)

// Layer is one step of a sequential Model.
type Layer struct {
	Type       string      `json:"type"`
	Activation string      `json:"activation,omitempty"` // dense only; default "linear"
	Kernel     [][]float64 `json:"kernel,omitempty"`     // dense only; [inputs][units]
	Bias       []float64   `json:"bias,omitempty"`       // dense only; len units, empty = zeros
}

var activations = map[string]func([]float64){
	"":        func([]float64) {},
	"linear":  func([]float64) {},
	"relu":    eachValue(func(x float64) float64 { return math.Max(0, x) }),
	"sigmoid": eachValue(func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }),
	"tanh":    eachValue(math.Tanh),
	"softmax": softmax,
}

// outputShape checks that the layer accepts in and returns its output shape.
func (l Layer) outputShape(in []int) ([]int, error) {
	switch l.Type {
	case LayerFlatten:
		n := 1
		for _, d := range in {
			n *= d
		}
		return []int{n}, nil

	case LayerGlobalPool:
		if len(in) != 3 { //nolint:mnd // HWC
			return nil, fmt.Errorf("expects a 3-d input, got %v", in)
		}
		return []int{in[2]}, nil

	case LayerDense:
		if len(in) != 1 {
			return nil, fmt.Errorf("expects a vector input, got %v (add a flatten layer)", in)
		}
		if len(l.Kernel) != in[0] {
			return nil, fmt.Errorf("kernel has %d rows, input has %d values", len(l.Kernel), in[0])
		}
		units := len(l.Kernel[0])
		if units == 0 {
			return nil, errors.New("kernel has no units")
		}
		for i, row := range l.Kernel {
			if len(row) != units {
				return nil, fmt.Errorf("kernel row %d has %d units, want %d", i, len(row), units)
			}
		}
		if len(l.Bias) != 0 && len(l.Bias) != units {
			return nil, fmt.Errorf("bias has %d values, want %d", len(l.Bias), units)
		}
		if _, ok := activations[l.Activation]; !ok {
			return nil, fmt.Errorf("unknown activation %q", l.Activation)
		}
		return []int{units}, nil

	default:
		return nil, fmt.Errorf("unknown layer type %q", l.Type)
	}
}

// apply runs the layer on one sample. The input slice is never modified.
func (l Layer) apply(in []float64, shape []int) ([]float64, []int, error) {
	outShape, err := l.outputShape(shape)
	if err != nil {
		return nil, nil, err
	}

	switch l.Type {
	case LayerGlobalPool:
		c := shape[2]
		pixels := shape[0] * shape[1]
		out := make([]float64, c)
		for p := range pixels {
			for k := range c {
				out[k] += in[p*c+k]
			}
		}
		for k := range out {
			out[k] /= float64(pixels)
		}
		return out, outShape, nil

	case LayerDense:
		units := outShape[0]
		out := make([]float64, units)
		copy(out, l.Bias)
		for i, x := range in {
			if x == 0 {
				continue
			}
			for j, w := range l.Kernel[i] {
				out[j] += x * w
			}
		}
		activations[l.Activation](out)
		return out, outShape, nil

	default: // flatten
		return in, outShape, nil
	}
}

func eachValue(f func(float64) float64) func([]float64) {
	return func(v []float64) {
		for i, x := range v {
			v[i] = f(x)
		}
	}
}

func softmax(v []float64) {
	peak := math.Inf(-1)
	for _, x := range v {
		peak = math.Max(peak, x)
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - peak)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}
