package util

import (
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// logTailSize is how many recent log lines are kept for error reports.
const logTailSize = 64

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// tail is a ring of the most recent log lines, attached to error reports.
var tail = &logTail{lines: make([]string, 0, logTailSize)}

type logTail struct {
	mu    sync.Mutex
	lines []string
	next  int
}

func (t *logTail) add(level, msg string) {
	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("15:04:05.000"), level, msg)

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) < logTailSize {
		t.lines = append(t.lines, line)
		return
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % logTailSize
}

func (t *logTail) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	out = append(out, t.lines[:t.next]...)
	return out
}

// LogTail returns the most recent log lines, oldest first.
func LogTail() []string {
	return tail.snapshot()
}

// Leveled logging functions backed by pterm prefixed printers.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tail.add("DEBUG", msg)
	pterm.DefaultLogger.Debug(msg)
}

func LogInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tail.add("INFO", msg)
	pterm.DefaultLogger.Info(msg)
}

func LogSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tail.add("INFO", msg)
	pterm.DefaultLogger.Info(msg)
}

func LogWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tail.add("WARN", msg)
	pterm.DefaultLogger.Warn(msg)
}

func LogError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tail.add("ERROR", msg)
	pterm.DefaultLogger.Error(msg)
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}
