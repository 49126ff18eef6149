package util

import (
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, " 0.0   B"},
		{99, "99.0   B"},
		{1536, " 1.5 KiB"},
		{1024 * 1024 * 50, "50.0 MiB"},
	}

	for _, tc := range tests {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
		if len(formatBytes(tc.in)) != 8 {
			t.Errorf("formatBytes(%v) is not 8 chars wide", tc.in)
		}
	}
}

func TestStatsCounters(t *testing.T) {
	before := Stats.BytesSent.Load()
	Stats.AddSent(100)
	if got := Stats.BytesSent.Load() - before; got != 100 {
		t.Errorf("BytesSent delta = %d, want 100", got)
	}
}

func TestLogTailKeepsMostRecent(t *testing.T) {
	for i := 0; i < logTailSize+10; i++ {
		LogDebug("line %d", i)
	}

	lines := LogTail()
	if len(lines) != logTailSize {
		t.Fatalf("tail length = %d, want %d", len(lines), logTailSize)
	}
	if !strings.HasSuffix(lines[len(lines)-1], "line 73") {
		t.Errorf("last tail line = %q, want suffix %q", lines[len(lines)-1], "line 73")
	}
	if !strings.HasSuffix(lines[0], "line 10") {
		t.Errorf("first tail line = %q, want suffix %q", lines[0], "line 10")
	}
}

func TestIdentifierHashStable(t *testing.T) {
	if IdentifierHash("outpost_rescue") != IdentifierHash("outpost_rescue") {
		t.Fatal("hash is not deterministic")
	}
	if IdentifierHash("a") == IdentifierHash("b") {
		t.Fatal("distinct identifiers collided")
	}
}
