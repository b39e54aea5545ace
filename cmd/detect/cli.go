package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	deepfake "github.com/anatolykoptev/go-deepfake"
	"github.com/urfave/cli/v3"
)

const exitFailure = 1

const description = "Writes exactly one compact JSON object per run to stdout, e.g.\n" +
	`{"success":false,"error":"Image not found: x.jpg"}` + "\n" +
	"Keys are unspaced; compare results as JSON, not as strings.\n" +
	"Exit status is 0 when success is true and 1 otherwise."

// result is what a command writes to stdout.
type result interface {
	ExitCode() int
}

// run parses args, executes the selected command and returns the process
// exit code. Whatever happens, stdout receives exactly one JSON line unless
// help was requested.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		emitted bool
		code    int
	)
	emit := func(r result) {
		if emitted {
			return
		}
		writeJSON(stdout, r)
		emitted = true
		code = r.ExitCode()
	}

	if err := newCommand(stderr, emit).Run(ctx, args); err != nil {
		emit(deepfake.Rejected(err))
		return exitFailure
	}
	return code
}

func newCommand(stderr io.Writer, emit func(result)) *cli.Command {
	return &cli.Command{
		Name:        "detect",
		Usage:       "classify an image as real or fake and print one JSON line",
		UsageText:   "detect --image <path> --model <path> [--project <path>]",
		Description: description,
		Writer:      stderr,
		ErrWriter:   stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Usage:   "path to the input image (required)",
				Sources: cli.EnvVars("DEEPFAKE_IMAGE"),
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "path to the trained model artifact (required)",
				Sources: cli.EnvVars("DEEPFAKE_MODEL"),
			},
			&cli.StringFlag{
				Name:    "project",
				Usage:   "root of an external inference project",
				Sources: cli.EnvVars("DEEPFAKE_PROJECT"),
			},
			&cli.StringFlag{
				Name:    "entrypoint",
				Value:   deepfake.DefaultProjectEntrypoint,
				Usage:   "prediction executable, relative to the project root",
				Sources: cli.EnvVars("DEEPFAKE_ENTRYPOINT"),
			},
			&cli.StringSliceFlag{
				Name:    "backend",
				Value:   []string{"project", "direct"},
				Usage:   "inference backends, tried in order",
				Sources: cli.EnvVars("DEEPFAKE_BACKENDS"),
			},
			&cli.FloatFlag{
				Name:    "threshold",
				Value:   deepfake.DefaultFakeThreshold,
				Usage:   "fake probability threshold of the direct backend",
				Sources: cli.EnvVars("DEEPFAKE_THRESHOLD"),
			},
			&cli.IntFlag{
				Name:    "fake-channel",
				Value:   deepfake.DefaultFakeChannel,
				Usage:   "output channel holding the fake probability (>= 0; model labels take precedence)",
				Sources: cli.EnvVars("DEEPFAKE_FAKE_CHANNEL"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "overall inference deadline (0 = none)",
				Sources: cli.EnvVars("DEEPFAKE_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "error",
				Usage:   "stderr log level: debug, info, warn, error",
				Sources: cli.EnvVars("DEEPFAKE_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "stderr log format: text or json",
				Sources: cli.EnvVars("DEEPFAKE_LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := configFrom(c, stderr)
			if err != nil {
				emit(deepfake.Rejected(err))
				return nil
			}

			imagePath, modelPath := c.String("image"), c.String("model")
			switch {
			case imagePath == "":
				emit(deepfake.Rejected(errors.New("missing required flag: --image")))
				return nil
			case modelPath == "":
				emit(deepfake.Rejected(errors.New("missing required flag: --model")))
				return nil
			}

			if d := c.Duration("timeout"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			emit(cfg.Detect(ctx, imagePath, modelPath))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "report format, perceptual hashes and provenance metadata of an image",
				ArgsUsage: "<image>",
				Action: func(ctx context.Context, c *cli.Command) error {
					logger, err := newLogger(c.String("log-level"), c.String("log-format"), stderr)
					if err != nil {
						emit(deepfake.InspectionResult{Error: err.Error()})
						return nil
					}
					if c.Args().Len() != 1 {
						emit(deepfake.InspectionResult{Error: "inspect takes exactly one image path"})
						return nil
					}

					cfg := &deepfake.Config{Logger: logger}
					emit(cfg.Inspect(ctx, c.Args().First()))
					return nil
				},
			},
		},
	}
}

// configFrom maps flags onto a detection config.
func configFrom(c *cli.Command, stderr io.Writer) (*deepfake.Config, error) {
	logger, err := newLogger(c.String("log-level"), c.String("log-format"), stderr)
	if err != nil {
		return nil, err
	}

	cfg := &deepfake.Config{
		ProjectRoot:       c.String("project"),
		ProjectEntrypoint: c.String("entrypoint"),
		FakeThreshold:     c.Float("threshold"),
		Logger:            logger,
	}
	if cfg.FakeThreshold <= 0 || cfg.FakeThreshold > 1 {
		return nil, fmt.Errorf("invalid threshold %v: must be in (0, 1]", cfg.FakeThreshold)
	}
	channel := c.Int("fake-channel")
	if channel < 0 {
		return nil, fmt.Errorf("invalid fake-channel %d: must be >= 0", channel)
	}
	cfg.FakeChannel = &channel

	backends, err := selectBackends(cfg, c.StringSlice("backend"))
	if err != nil {
		return nil, err
	}
	cfg.Backends = backends
	cfg.OnPanic = func(tag string, r any) {
		logger.Error("deepfake: recovered panic", "tag", tag, "panic", r)
	}
	cfg.OnAttempt = func(ev deepfake.AttemptEvent) {
		logger.Info("deepfake: backend attempt", "backend", ev.Backend, "outcome", ev.Outcome,
			"duration", ev.Duration)
	}

	logger.Debug("deepfake: configuration", slog.String("project", cfg.ProjectRoot),
		slog.Any("backends", c.StringSlice("backend")), slog.Float64("threshold", cfg.FakeThreshold))
	return cfg, nil
}

// selectBackends resolves backend names into the ordered backend list.
func selectBackends(cfg *deepfake.Config, names []string) ([]deepfake.Backend, error) {
	if len(names) == 0 {
		return nil, errors.New("no backend selected")
	}

	backends := make([]deepfake.Backend, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "project":
			backends = append(backends, cfg.ProjectBackend())
		case "direct":
			backends = append(backends, cfg.DirectBackend())
		default:
			return nil, fmt.Errorf("unknown backend %q: must be 'project' or 'direct'", name)
		}
	}
	return backends, nil
}

// writeJSON writes v as one JSON line. If v cannot be encoded a minimal
// failure object is written instead, so the line is always valid JSON.
func writeJSON(w io.Writer, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.Reset()
		msg, _ := json.Marshal("encode result: " + err.Error())
		fmt.Fprintf(&buf, "{\"success\":false,\"error\":%s}\n", msg)
	}
	_, _ = w.Write(buf.Bytes())
}
