// Package metrics provides the observability surface of the CryptexQ core:
// a structured leveled logger, Prometheus collectors, and tracing.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent // disables all logging
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSilent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name; unknown names default to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO", "":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "SILENT", "OFF", "NONE":
		return LevelSilent
	default:
		return LevelInfo
	}
}

// Fields holds structured log fields.
type Fields map[string]interface{}

// Format selects the output encoding.
type Format int

const (
	FormatText Format = iota // human-readable key=value lines
	FormatJSON               // one JSON object per line
)

// ParseFormat parses a format name; unknown names default to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Logger is a structured leveled logger. The zero value is not usable; use
// NewLogger.
type Logger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  Level
	format Format
	name   string
	fields Fields
	clock  func() time.Time
}

// LoggerOption configures a logger.
type LoggerOption func(*Logger)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) { l.out = w }
}

// WithLevel sets the minimum level.
func WithLevel(level Level) LoggerOption {
	return func(l *Logger) { l.level = level }
}

// WithFormat sets the output encoding.
func WithFormat(format Format) LoggerOption {
	return func(l *Logger) { l.format = format }
}

// WithName sets the logger name.
func WithName(name string) LoggerOption {
	return func(l *Logger) { l.name = name }
}

// NewLogger creates a logger writing to stdout at info level unless
// configured otherwise.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		mu:     &sync.Mutex{},
		out:    os.Stdout,
		level:  LevelInfo,
		format: FormatText,
		fields: Fields{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Named returns a child logger whose name is extended with name.
func (l *Logger) Named(name string) *Logger {
	child := *l
	if l.name != "" {
		child.name = l.name + "." + name
	} else {
		child.name = name
	}
	return &child
}

// With returns a child logger carrying additional default fields.
func (l *Logger) With(fields Fields) *Logger {
	child := *l
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child.fields = merged
	return &child
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Fields) { l.emit(LevelDebug, msg, fields) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Fields) { l.emit(LevelInfo, msg, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Fields) { l.emit(LevelWarn, msg, fields) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Fields) { l.emit(LevelError, msg, fields) }

func (l *Logger) emit(level Level, msg string, extra []Fields) {
	if level < l.level {
		return
	}

	merged := make(Fields, len(l.fields)+4)
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range extra {
		for k, v := range f {
			merged[k] = v
		}
	}

	var line []byte
	if l.format == FormatJSON {
		entry := make(map[string]interface{}, len(merged)+4)
		entry["time"] = l.clock().Format(time.RFC3339Nano)
		entry["level"] = level.String()
		entry["msg"] = msg
		if l.name != "" {
			entry["logger"] = l.name
		}
		for k, v := range merged {
			entry[k] = v
		}
		var err error
		line, err = json.Marshal(entry)
		if err != nil {
			line = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"log marshal failed: %v"}`, err))
		}
		line = append(line, '\n')
	} else {
		var b strings.Builder
		b.WriteString(l.clock().Format("15:04:05.000"))
		fmt.Fprintf(&b, " %-5s ", level.String())
		if l.name != "" {
			b.WriteString("[" + l.name + "] ")
		}
		b.WriteString(msg)
		if len(merged) > 0 {
			keys := make([]string, 0, len(merged))
			for k := range merged {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, merged[k])
			}
		}
		b.WriteByte('\n')
		line = []byte(b.String())
	}

	l.mu.Lock()
	_, _ = l.out.Write(line)
	l.mu.Unlock()
}
