package supervisor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// syncWriter serializes writes from many processes onto one writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

// lineWriter splits a byte stream into lines and hands each to emit. A
// trailing partial line is emitted on Close.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(line string)
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, p...)
	for {
		i := bytes.IndexByte(lw.buf, '\n')
		if i < 0 {
			break
		}
		lw.emit(strings.TrimSuffix(string(lw.buf[:i]), "\r"))
		lw.buf = lw.buf[i+1:]
	}
	return len(p), nil
}

func (lw *lineWriter) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.buf) > 0 {
		lw.emit(string(lw.buf))
		lw.buf = nil
	}
	return nil
}

// outputSink routes one process's stdout and stderr according to its output
// policy. Log output is written as JSON lines by zerolog, one file per
// process instance.
type outputSink struct {
	screen *syncWriter
	prefix string
	file   *os.File
	log    zerolog.Logger
	toLog  bool
}

func newOutputSink(screen *syncWriter, logDir string, d ProcessDescriptor, id int) (*outputSink, error) {
	policy := d.Output
	if policy == "" {
		policy = OutputScreen
	}
	s := &outputSink{prefix: fmt.Sprintf("[%s-%d] ", d.Name, id)}
	if policy == OutputScreen || policy == OutputBoth {
		s.screen = screen
	}
	if policy == OutputLog || policy == OutputBoth {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
		path := filepath.Join(logDir, fmt.Sprintf("%s-%d.log", sanitize(d.Name), id))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open process log %s: %w", path, err)
		}
		s.file = f
		s.toLog = true
		s.log = zerolog.New(f).With().Timestamp().Str("process", d.Name).Int("instance", id).Logger()
	}
	return s, nil
}

// writers returns fresh stdout and stderr writers for one start attempt.
func (s *outputSink) writers() (stdout, stderr *lineWriter) {
	return &lineWriter{emit: s.emitter("stdout", zerolog.InfoLevel)},
		&lineWriter{emit: s.emitter("stderr", zerolog.WarnLevel)}
}

func (s *outputSink) emitter(stream string, level zerolog.Level) func(string) {
	return func(line string) {
		if s.screen != nil {
			s.screen.WriteLine(s.prefix + line)
		}
		if s.toLog {
			s.log.WithLevel(level).Str("stream", stream).Msg(line)
		}
	}
}

// note records a supervisor event in the process log.
func (s *outputSink) note(level zerolog.Level, msg string, fields map[string]any) {
	if s.toLog {
		s.log.WithLevel(level).Fields(fields).Msg(msg)
	}
}

func (s *outputSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, strings.Trim(name, "/"))
}
