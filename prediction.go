package deepfake

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ParsePrediction decodes the result mapping printed by a project entry point.
// Empty output and a JSON null mean "no result" (ErrNullResult). Missing
// fields fall back to prediction "unknown", confidence 0 and probability 0;
// fields that are present must be a string and numbers respectively.
func ParsePrediction(data []byte) (*Prediction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNullResult
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid prediction output: not JSON")
	}

	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		return nil, ErrNullResult
	}
	if !res.IsObject() {
		return nil, errors.New("invalid prediction output: expected a JSON object")
	}

	p := &Prediction{Label: LabelUnknown}
	if v := res.Get("prediction"); v.Exists() {
		if v.Type != gjson.String {
			return nil, fmt.Errorf("invalid prediction output: prediction must be a string, got %s", v.Raw)
		}
		p.Label = v.Str
	}

	var err error
	if p.Confidence, err = number(res, "confidence"); err != nil {
		return nil, err
	}
	if p.Probability, err = number(res, "probability"); err != nil {
		return nil, err
	}
	return p, nil
}

func number(res gjson.Result, key string) (float64, error) {
	v := res.Get(key)
	if !v.Exists() {
		return 0, nil
	}
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("invalid prediction output: %s must be a number, got %s", key, v.Raw)
	}
	return v.Num, nil
}

// lastLine returns the last non-empty line of out, and everything before it.
func lastLine(out []byte) (last, rest []byte) {
	out = bytes.TrimRight(out, " \t\r\n")
	i := bytes.LastIndexByte(out, '\n')
	if i < 0 {
		return out, nil
	}
	return out[i+1:], out[:i]
}
