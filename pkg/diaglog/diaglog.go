// Package diaglog maintains the per-user diagnostic log file: an append-only
// sink capped to the most recent lines, with a severity classifier for raw
// subprocess output.
package diaglog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// DefaultMaxLines is the retention cap applied after every append.
const DefaultMaxLines = 100

// Severity of a single log entry.
type Severity string

const (
	Warning Severity = "WARNING"
	Error   Severity = "ERROR"
)

// DefaultPath returns the log file location, honoring the TFUP_LOG override.
func DefaultPath() string {
	if p := os.Getenv("TFUP_LOG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tfup.log"
	}
	return filepath.Join(home, ".tfup.log")
}

// Logger appends formatted entries to a bounded file. All methods swallow
// I/O errors: a logging failure must never abort the primary workflow.
type Logger struct {
	mu       sync.Mutex
	path     string
	maxLines int
	now      func() time.Time
}

// New returns a Logger writing to path, retaining at most maxLines lines.
func New(path string, maxLines int) *Logger {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Logger{path: path, maxLines: maxLines, now: time.Now}
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Record appends one entry tagged with the originating operation, then
// enforces the retention cap.
func (l *Logger) Record(sev Severity, op, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s  %s: %s: %s\n",
		l.now().Format("2006-01-02 15:04:05"), sev, op, strings.TrimRight(msg, "\n"))

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		return
	}
	l.trim()
}

// RecordOutput classifies raw subprocess output line by line and records
// every line that matches a severity pattern. A single invocation can emit a
// mix of warnings and errors, so classification is per physical line.
func (l *Logger) RecordOutput(op string, raw []byte) {
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sev, ok := Classify(line); ok {
			l.Record(sev, op, line)
		}
	}
}

var (
	errorRE = regexp.MustCompile(`(?i)\b(fatal|denied|not found|timed out|timeout|authentication failed|error)\b|\bHTTP[/ ]?[45][0-9]{2}\b|\bstatus(?: code)? [45][0-9]{2}\b`)
	warnRE  = regexp.MustCompile(`(?i)\b(warning|deprecated)\b`)
)

// Classify assigns a severity to one physical line of subprocess output.
// Lines matching neither pattern carry no diagnostic value and are dropped.
func Classify(line string) (Severity, bool) {
	switch {
	case errorRE.MatchString(line):
		return Error, true
	case warnRE.MatchString(line):
		return Warning, true
	default:
		return "", false
	}
}

// trim rewrites the file to its last maxLines lines using a temporary file
// in the same directory and a rename, so a crash never exposes a partially
// truncated log. Caller holds l.mu.
func (l *Logger) trim() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= l.maxLines {
		return
	}
	lines = lines[len(lines)-l.maxLines:]

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "."+filepath.Base(l.path)+"-*")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	_, werr := tmp.WriteString(strings.Join(lines, "\n") + "\n")
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpPath)
		return
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
	}
}

// HandleLog lets the Logger double as an apex/log handler, so console
// warnings and errors also land in the diagnostic file. Lower levels are
// ignored.
func (l *Logger) HandleLog(e *log.Entry) error {
	op := "cli"
	if v, ok := e.Fields.Get("op").(string); ok && v != "" {
		op = v
	}
	switch {
	case e.Level >= log.ErrorLevel:
		l.Record(Error, op, e.Message)
	case e.Level == log.WarnLevel:
		l.Record(Warning, op, e.Message)
	}
	return nil
}
