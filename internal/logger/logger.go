// Package logger writes categorised log lines: colored text for the
// terminal and one JSON object per line for the daily log file.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (lv Level) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "INFO"
	}
}

type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Logger struct {
	mu       sync.Mutex
	term     io.Writer
	file     io.Writer
	closer   io.Closer
	minLevel Level
	exit     func(int)
}

// New creates dir if needed and opens dir/<name>-YYYY-MM-DD.log for append.
func New(dir, name string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, time.Now().UTC().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := &Logger{term: color.Output, file: f, closer: f, minLevel: DEBUG, exit: os.Exit}
	l.Info("LOGGER", "log file: "+path)
	return l, nil
}

// NewWriter builds a Logger over arbitrary writers; either may be nil.
func NewWriter(term, file io.Writer) *Logger {
	return &Logger{term: term, file: file, minLevel: DEBUG, exit: os.Exit}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWriter(nil, nil)
}

// SetLevel drops entries below lv.
func (l *Logger) SetLevel(lv Level) { l.minLevel = lv }

func (l *Logger) log(lv Level, category, message string) {
	if l == nil || lv < l.minLevel {
		return
	}
	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}
	entry := Entry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     lv.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.term != nil {
		fmt.Fprint(l.term, formatTerminal(entry))
	}
	if l.file != nil {
		if b, err := json.Marshal(entry); err == nil {
			_, _ = l.file.Write(append(b, '\n'))
		}
	}
}

func formatTerminal(e Entry) string {
	var lc, cc *color.Color
	switch e.Level {
	case "DEBUG":
		lc, cc = color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)
	case "INFO":
		lc, cc = color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)
	case "WARN":
		lc, cc = color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)
	default:
		lc, cc = color.New(color.FgRed), color.New(color.FgRed, color.Bold)
	}
	ts := color.New(color.FgBlue).Sprint(e.Timestamp[11:19])
	out := fmt.Sprintf("%s %s %s %s", ts, lc.Sprintf("%-5s", e.Level), cc.Sprintf("[%-11s]", e.Category), e.Message)
	if e.File != "" && e.Line > 0 {
		out += color.New(color.FgMagenta).Sprintf(" (%s:%d)", e.File, e.Line)
	}
	return out + "\n"
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

// Fatal logs and terminates the process.
func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	l.Close()
	l.exit(1)
}

func (l *Logger) LogAPI(method, uri string, status int, latency time.Duration) {
	lv := INFO
	if status >= 500 {
		lv = ERROR
	} else if status >= 400 {
		lv = WARN
	}
	l.log(lv, "API", fmt.Sprintf("%s %s - %d (%s)", method, uri, status, latency.Round(time.Microsecond)))
}

func (l *Logger) LogDatabase(operation, message string) {
	l.log(INFO, "DATABASE", fmt.Sprintf("[%s] %s", operation, message))
}

func (l *Logger) LogReservation(action string, reservationID uint64, message string) {
	l.log(INFO, "RESERVATION", fmt.Sprintf("[%s] #%d - %s", action, reservationID, message))
}

func (l *Logger) LogQueue(action, queue, message string) {
	l.log(INFO, "QUEUE", fmt.Sprintf("[%s] %s - %s", action, queue, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() {
	if l == nil || l.closer == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.closer.Close()
	l.closer, l.file = nil, nil
}
