package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide relay counter.
var Stats = &stats{}

type stats struct {
	Opened    atomic.Int64 // cumulative sessions started
	Closed    atomic.Int64 // cumulative sessions stopped
	BytesRecv atomic.Int64 // cumulative bytes read from peers (header + payload)
	BytesSent atomic.Int64 // cumulative bytes written to peers
	Forwarded atomic.Int64 // packets accepted into a transmit queue
	Dropped   atomic.Int64 // packets discarded because a transmit queue was full
}

func (s *stats) AddSession()    { s.Opened.Add(1) }
func (s *stats) RemoveSession() { s.Closed.Add(1) }
func (s *stats) AddRecv(n int)  { s.BytesRecv.Add(int64(n)) }
func (s *stats) AddSent(n int)  { s.BytesSent.Add(int64(n)) }
func (s *stats) AddForwarded()  { s.Forwarded.Add(1) }
func (s *stats) AddDropped()    { s.Dropped.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Opened, Closed       int64
	BytesRecv, BytesSent int64
	Forwarded, Dropped   int64
}

// Snapshot returns the current counter values.
func (s *stats) Snapshot() Snapshot {
	return Snapshot{
		Opened:    s.Opened.Load(),
		Closed:    s.Closed.Load(),
		BytesRecv: s.BytesRecv.Load(),
		BytesSent: s.BytesSent.Load(),
		Forwarded: s.Forwarded.Load(),
		Dropped:   s.Dropped.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// RunStatsReporter logs relay statistics every interval while there is
// activity. It blocks until ctx is cancelled.
func RunStatsReporter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := Stats.Snapshot()
	for {
		select {
		case <-ticker.C:
			cur := Stats.Snapshot()
			if line, active := formatDelta(prev, cur, interval); active {
				pterm.DefaultLogger.Info(line)
			}
			prev = cur

		case <-ctx.Done():
			return
		}
	}
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatDelta renders the change between two snapshots. The boolean is
// false when nothing happened during the interval.
func formatDelta(prev, cur Snapshot, interval time.Duration) (string, bool) {
	secs := interval.Seconds()
	inS := float64(cur.BytesRecv-prev.BytesRecv) / secs
	outS := float64(cur.BytesSent-prev.BytesSent) / secs
	opened := cur.Opened - prev.Opened
	closed := cur.Closed - prev.Closed
	dropped := cur.Dropped - prev.Dropped

	if opened == 0 && closed == 0 && dropped == 0 && inS <= 10 && outS <= 10 {
		return "", false
	}

	return fmt.Sprintf("In: %s/s | Out: %s/s | Sessions: %2d↑ %2d↓ (%d live) | Dropped: %d",
		formatBytes(inS),
		formatBytes(outS),
		opened,
		closed,
		cur.Opened-cur.Closed,
		dropped,
	), true
}
