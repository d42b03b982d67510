package diaglog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, maxLines int) *Logger {
	t.Helper()
	l := New(filepath.Join(t.TempDir(), "diag.log"), maxLines)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRecordFormat(t *testing.T) {
	l := newTestLogger(t, 10)
	l.Record(Error, "checkpoint", "HTTP 503 from endpoint")

	lines := readLines(t, l.Path())
	require.Len(t, lines, 1)
	assert.Equal(t, "2024-03-01 12:00:00  ERROR: checkpoint: HTTP 503 from endpoint", lines[0])
}

func TestRotationKeepsMostRecent(t *testing.T) {
	const max = 5
	l := newTestLogger(t, max)

	// max+k appends must leave exactly max lines, the most recent ones in
	// emission order
	for i := 0; i < max+3; i++ {
		l.Record(Warning, "op", fmt.Sprintf("entry %d", i))
	}

	lines := readLines(t, l.Path())
	require.Len(t, lines, max)
	for i, line := range lines {
		assert.True(t, strings.HasSuffix(line, fmt.Sprintf("entry %d", i+3)), "line %d = %q", i, line)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line    string
		want    Severity
		matched bool
	}{
		{"fatal: repository not found", Error, true},
		{"Permission denied (publickey)", Error, true},
		{"connection timed out", Error, true},
		{"remote: HTTP 403", Error, true},
		{"server returned status 502", Error, true},
		{"authentication failed for origin", Error, true},
		{"error: could not lock config file", Error, true},
		{"warning: redirecting to https", Warning, true},
		{"this option is deprecated", Warning, true},
		{"inflating: terraform", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			sev, ok := Classify(tt.line)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, sev)
		})
	}
}

func TestRecordOutputClassifiesPerLine(t *testing.T) {
	l := newTestLogger(t, 10)

	// one subprocess invocation can emit a mix of severities
	l.RecordOutput("deps", []byte("warning: apt does not have a stable CLI\nReading package lists...\nE: Permission denied\n"))

	lines := readLines(t, l.Path())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "WARNING: deps: warning: apt does not have a stable CLI")
	assert.Contains(t, lines[1], "ERROR: deps: E: Permission denied")
}

func TestHandleLogMapsLevels(t *testing.T) {
	l := newTestLogger(t, 10)

	require.NoError(t, l.HandleLog(&log.Entry{Level: log.ErrorLevel, Message: "boom", Fields: log.Fields{"op": "download"}}))
	require.NoError(t, l.HandleLog(&log.Entry{Level: log.WarnLevel, Message: "careful", Fields: log.Fields{}}))
	require.NoError(t, l.HandleLog(&log.Entry{Level: log.InfoLevel, Message: "ignored", Fields: log.Fields{}}))

	lines := readLines(t, l.Path())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ERROR: download: boom")
	assert.Contains(t, lines[1], "WARNING: cli: careful")
}

func TestLogFailuresAreSwallowed(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing", "deep", "diag.log"), 10)

	// must not panic or surface the failure
	l.Record(Error, "op", "message")
	l.RecordOutput("op", []byte("fatal: nope\n"))
}
