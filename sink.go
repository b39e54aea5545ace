package deepfake

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// logSink is an io.Writer that turns backend output into debug log records,
// one per line. It keeps the last non-empty line for error messages.
type logSink struct {
	logger  *slog.Logger
	backend string
	stream  string

	mu   sync.Mutex
	buf  bytes.Buffer
	last string
}

func newLogSink(logger *slog.Logger, backend, stream string) *logSink {
	return &logSink{logger: orDiscard(logger), backend: backend, stream: stream}
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(p)
	for {
		i := bytes.IndexByte(s.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(s.buf.Next(i + 1))
		s.emit(line)
	}
	return len(p), nil
}

// Flush emits a trailing partial line, if any.
func (s *logSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf.Len() > 0 {
		s.emit(s.buf.String())
		s.buf.Reset()
	}
}

// LastLine returns the last non-empty line written so far.
func (s *logSink) LastLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *logSink) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	s.last = strings.TrimSpace(line)
	s.logger.Debug("deepfake: backend output", "backend", s.backend, "stream", s.stream, "line", line)
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
