package deepfake

import (
	"errors"
	"testing"
)

func TestParsePrediction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		want     *Prediction
		wantNull bool
		wantErr  bool
	}{
		{
			name: "all fields",
			data: `{"prediction": "Fake", "confidence": 0.87, "probability": 0.91}`,
			want: &Prediction{Label: "Fake", Confidence: 0.87, Probability: 0.91},
		},
		{
			name: "missing fields take defaults",
			data: `{}`,
			want: &Prediction{Label: LabelUnknown},
		},
		{
			name: "empty prediction is kept",
			data: `{"prediction": "", "confidence": 0.4}`,
			want: &Prediction{Label: "", Confidence: 0.4},
		},
		{
			name: "extra fields ignored",
			data: `{"prediction": "real", "confidence": 0.6, "features": [1, 2, 3]}`,
			want: &Prediction{Label: "real", Confidence: 0.6},
		},
		{
			name: "surrounding whitespace",
			data: "\n  {\"prediction\": \"real\"}  \n",
			want: &Prediction{Label: "real"},
		},
		{name: "empty", data: "", wantNull: true},
		{name: "whitespace only", data: " \n", wantNull: true},
		{name: "json null", data: "null", wantNull: true},
		{name: "not json", data: "Prediction: FAKE", wantErr: true},
		{name: "array", data: "[0.1, 0.9]", wantErr: true},
		{name: "numeric prediction", data: `{"prediction": 5, "confidence": 0.9}`, wantErr: true},
		{name: "null prediction", data: `{"prediction": null}`, wantErr: true},
		{name: "boolean prediction", data: `{"prediction": true}`, wantErr: true},
		{name: "string confidence", data: `{"prediction": "fake", "confidence": "0.9"}`, wantErr: true},
		{name: "null probability", data: `{"prediction": "fake", "probability": null}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePrediction([]byte(tc.data))

			switch {
			case tc.wantNull:
				if !errors.Is(err, ErrNullResult) {
					t.Errorf("err = %v, want ErrNullResult", err)
				}
				return
			case tc.wantErr:
				if err == nil || errors.Is(err, ErrNullResult) {
					t.Errorf("err = %v, want a decode error", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != *tc.want {
				t.Errorf("ParsePrediction = %+v, want %+v", *got, *tc.want)
			}
		})
	}
}

func TestLastLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		out, wantLast, wantRest string
	}{
		{out: `{"a":1}`, wantLast: `{"a":1}`},
		{out: "noise\n{\"a\":1}\n", wantLast: `{"a":1}`, wantRest: "noise"},
		{out: "one\ntwo\n{}\n\n", wantLast: "{}", wantRest: "one\ntwo"},
		{out: ""},
	}

	for _, tc := range tests {
		last, rest := lastLine([]byte(tc.out))
		if string(last) != tc.wantLast || string(rest) != tc.wantRest {
			t.Errorf("lastLine(%q) = (%q, %q), want (%q, %q)", tc.out, last, rest, tc.wantLast, tc.wantRest)
		}
	}
}
