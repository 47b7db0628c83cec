// Package telemetry provides treeline's structured logger.
//
// Log records are JSON Lines appended to a file, one object per record,
// with a fixed envelope: timestamp, level, message, and an optional
// context object carrying the per-call fields. The MCP transport owns
// stdout, so the optional console echo goes to stderr.
//
// A nil *Logger is valid and discards everything, which lets callers
// treat logging as an optional subsystem.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Ctx carries the structured context fields of a single log record.
type Ctx map[string]any

// Options configures a Logger. An empty Path disables the file sink.
type Options struct {
	// Path is the JSONL file to append to. Parent directories are
	// created as needed.
	Path string

	// Level is the minimum level emitted by every sink.
	Level slog.Level

	// Console echoes records to stderr in a human-readable form.
	Console bool
}

// Logger writes structured JSONL records.
type Logger struct {
	sl   *slog.Logger
	file *os.File
}

// New opens the sinks described by opts. With no sinks configured it
// returns a logger that discards everything.
func New(opts Options) (*Logger, error) {
	var sinks []slog.Handler
	var file *os.File

	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
			return nil, fmt.Errorf("telemetry: creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("telemetry: opening log file: %w", err)
		}
		file = f
		sinks = append(sinks, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level:       opts.Level,
			ReplaceAttr: renameEnvelopeKeys,
		}))
	}

	if opts.Console {
		sinks = append(sinks, tint.NewHandler(os.Stderr, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.RFC3339,
		}))
	}

	switch len(sinks) {
	case 0:
		return &Logger{}, nil
	case 1:
		return &Logger{sl: slog.New(sinks[0]), file: file}, nil
	default:
		return &Logger{sl: slog.New(tee{sinks: sinks}), file: file}, nil
	}
}

// renameEnvelopeKeys pins the JSONL envelope: slog's "time" becomes an
// RFC 3339 UTC "timestamp" and "msg" becomes "message".
func renameEnvelopeKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a configuration string onto a slog level. Unknown
// values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a record at DEBUG level.
func (l *Logger) Debug(msg string, c Ctx) { l.log(slog.LevelDebug, msg, c) }

// Info logs a record at INFO level.
func (l *Logger) Info(msg string, c Ctx) { l.log(slog.LevelInfo, msg, c) }

// Warn logs a record at WARN level.
func (l *Logger) Warn(msg string, c Ctx) { l.log(slog.LevelWarn, msg, c) }

// Error logs a record at ERROR level.
func (l *Logger) Error(msg string, c Ctx) { l.log(slog.LevelError, msg, c) }

// RecordAPICall emits the standard per-operation performance record:
// INFO on success, ERROR on failure, with endpoint, duration in
// milliseconds, and a performanceMetric flag in the context so the
// records can be filtered out of the log stream. Fields in extra are
// merged in without overriding the standard ones.
func (l *Logger) RecordAPICall(operation string, duration time.Duration, success bool, extra Ctx) {
	if l == nil || l.sl == nil {
		return
	}
	c := Ctx{
		"endpoint":          operation,
		"duration":          duration.Milliseconds(),
		"success":           success,
		"performanceMetric": true,
	}
	for k, v := range extra {
		if _, taken := c[k]; !taken {
			c[k] = v
		}
	}
	level := slog.LevelInfo
	if !success {
		level = slog.LevelError
	}
	l.log(level, "api call: "+operation, c)
}

// Close releases the file sink. Safe on a nil or file-less logger.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) log(level slog.Level, msg string, c Ctx) {
	if l == nil || l.sl == nil {
		return
	}
	if len(c) == 0 {
		l.sl.Log(context.Background(), level, msg)
		return
	}
	l.sl.Log(context.Background(), level, msg, slog.Any("context", map[string]any(c)))
}

// tee fans one record out to every sink.
type tee struct {
	sinks []slog.Handler
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.sinks {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		sinks[i] = h.WithAttrs(attrs)
	}
	return tee{sinks: sinks}
}

func (t tee) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		sinks[i] = h.WithGroup(name)
	}
	return tee{sinks: sinks}
}
