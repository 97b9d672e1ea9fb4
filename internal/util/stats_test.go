package util

import (
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{0, " 0.0   B"},
		{99, "99.0   B"},
		{1536, " 1.5 KiB"},
		{100 * 1024, " 0.1 MiB"},
	}

	for _, tc := range testCases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
		if got := formatBytes(tc.in); len(got) != 8 {
			t.Errorf("formatBytes(%v) width = %d, want 8", tc.in, len(got))
		}
	}
}

func TestFormatDeltaIdle(t *testing.T) {
	s := Snapshot{Opened: 3, Closed: 1, BytesRecv: 100, BytesSent: 100}
	if _, active := formatDelta(s, s, 10*time.Second); active {
		t.Error("identical snapshots should be reported as idle")
	}
}

func TestFormatDeltaActive(t *testing.T) {
	prev := Snapshot{Opened: 1}
	cur := Snapshot{Opened: 4, Closed: 1, Dropped: 7, BytesRecv: 20 * 1024}

	line, active := formatDelta(prev, cur, 10*time.Second)
	if !active {
		t.Fatal("expected activity")
	}
	for _, want := range []string{"3↑", "1↓", "(3 live)", "Dropped: 7", " 2.0 KiB/s"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %q", line, want)
		}
	}
}
