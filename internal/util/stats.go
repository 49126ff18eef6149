package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic/protocol counter.
var Stats = &stats{}

type stats struct {
	PacketsSent    atomic.Int64 // cumulative packets handed to the transport
	PacketsRecv    atomic.Int64 // cumulative packets drained from the inbox
	BytesSent      atomic.Int64 // cumulative bytes handed to the transport
	BytesRecv      atomic.Int64 // cumulative bytes drained from the inbox
	DroppedPackets atomic.Int64 // undecodable inbound packets and overflowed unreliable sends
	DesyncFaults   atomic.Int64 // fatal equality mismatches during finalize
	Reconnects     atomic.Int64 // automatic reconnection attempts
}

var (
	promPacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "packets_sent_total",
		Help: "Packets handed to the transport.",
	})
	promPacketsRecv = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "packets_received_total",
		Help: "Packets drained from the inbound queue.",
	})
	promBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "bytes_sent_total",
		Help: "Bytes handed to the transport.",
	})
	promBytesRecv = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "bytes_received_total",
		Help: "Bytes drained from the inbound queue.",
	})
	promDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "dropped_packets_total",
		Help: "Inbound packets abandoned after a decode failure, plus unreliable sends dropped on overflow.",
	})
	promDesync = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "desync_faults_total",
		Help: "Fatal round-start equality mismatches.",
	})
	promReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roundlink", Name: "reconnects_total",
		Help: "Automatic reconnection attempts.",
	})
)

func (s *stats) AddSent(n int) {
	s.PacketsSent.Add(1)
	s.BytesSent.Add(int64(n))
	promPacketsSent.Inc()
	promBytesSent.Add(float64(n))
}

func (s *stats) AddRecv(n int) {
	s.PacketsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
	promPacketsRecv.Inc()
	promBytesRecv.Add(float64(n))
}

func (s *stats) AddDropped() { s.DroppedPackets.Add(1); promDropped.Inc() }
func (s *stats) AddDesync()  { s.DesyncFaults.Add(1); promDesync.Inc() }
func (s *stats) AddReconnect() {
	s.Reconnects.Add(1)
	promReconnects.Inc()
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs traffic statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevDropped int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				dropped := Stats.DroppedPackets.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0

				if inS > 10 || outS > 10 || dropped != prevDropped {
					pterm.DefaultLogger.Info(formatStats(inS, outS, dropped-prevDropped))
				}

				prevSent = sent
				prevRecv = recv
				prevDropped = dropped

			case <-ctx.Done():
				return
			}
		}
	}()
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

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, dropped int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Dropped: %d",
		formatBytes(inS),
		formatBytes(outS),
		dropped,
	)
}
