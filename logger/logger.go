package logger

import (
	"encoding/json"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

type LogEntry struct {
	Timestamp string      `json:"timestamp"`
	Level     string      `json:"level"`
	Service   string      `json:"service"`
	Action    string      `json:"action"`
	Message   string      `json:"message"`
	Hostname  string      `json:"hostname"`
	RequestID string      `json:"request_id"`
	Error     *ErrorEntry `json:"error,omitempty"`
}

type ErrorEntry struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// Logger writes one JSON object per line.
type Logger struct {
	service  string
	hostname string
	level    Level

	mu  sync.Mutex
	out io.Writer
}

func New(service, level string) *Logger {
	hostname, _ := os.Hostname()
	return &Logger{
		service:  service,
		hostname: hostname,
		level:    ParseLevel(level),
		out:      os.Stdout,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{service: "nop", level: LevelError + 1, out: io.Discard}
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Logger) Debug(requestID, action, message string) {
	l.log(LevelDebug, requestID, action, message, nil)
}

func (l *Logger) Info(requestID, action, message string) {
	l.log(LevelInfo, requestID, action, message, nil)
}

func (l *Logger) Warn(requestID, action, message string) {
	l.log(LevelWarn, requestID, action, message, nil)
}

func (l *Logger) Error(requestID, action, message string, err error) {
	var entry *ErrorEntry
	if err != nil {
		buf := make([]byte, 1024)
		n := runtime.Stack(buf, false)
		entry = &ErrorEntry{Msg: err.Error(), Stack: string(buf[:n])}
	}
	l.log(LevelError, requestID, action, message, entry)
}

func (l *Logger) log(level Level, requestID, action, message string, errorEntry *ErrorEntry) {
	if l == nil || level < l.level {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Service:   l.service,
		Action:    action,
		Message:   message,
		Hostname:  l.hostname,
		RequestID: requestID,
		Error:     errorEntry,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(data, '\n'))
}
