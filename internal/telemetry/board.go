// Package telemetry publishes the control loop's state to observers.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the state of the controller after the latest frame.
type Snapshot struct {
	SessionID     string    `json:"sessionId,omitempty"`
	Port          string    `json:"port"`
	Count         int       `json:"count"`
	LastSent      int       `json:"lastSent"`
	Hands         int       `json:"hands"`
	Frames        uint64    `json:"frames"`
	Transmissions uint64    `json:"transmissions"`
	StartedAt     time.Time `json:"startedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Board holds the latest snapshot and annotated frame. The control loop is
// the only writer; readers get copies.
type Board struct {
	mu       sync.RWMutex
	snap     Snapshot
	jpeg     []byte
	watchers map[chan Snapshot]struct{}
	metrics  *Metrics
}

// NewBoard creates a board with metrics registered on reg. A nil reg skips metrics.
func NewBoard(port, sessionID string, reg prometheus.Registerer) *Board {
	now := time.Now()
	b := &Board{
		snap: Snapshot{
			SessionID: sessionID,
			Port:      port,
			LastSent:  -1,
			StartedAt: now,
			UpdatedAt: now,
		},
		watchers: make(map[chan Snapshot]struct{}),
	}
	if reg != nil {
		b.metrics = NewMetrics(reg)
	}
	return b
}

// Frame records one processed frame.
func (b *Board) Frame(count, hands int, detect time.Duration, jpeg []byte) {
	b.mu.Lock()
	changed := b.snap.Count != count
	b.snap.Count = count
	b.snap.Hands = hands
	b.snap.Frames++
	b.snap.UpdatedAt = time.Now()
	if jpeg != nil {
		b.jpeg = jpeg
	}
	snap := b.snap
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.frames.Inc()
		b.metrics.fingers.Set(float64(count))
		b.metrics.detect.Observe(detect.Seconds())
	}
	if changed {
		b.notify(snap)
	}
}

// Sent records a transmission.
func (b *Board) Sent(count int, reason string) {
	b.mu.Lock()
	b.snap.LastSent = count
	b.snap.Transmissions++
	snap := b.snap
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.transmissions.WithLabelValues(reason).Inc()
	}
	b.notify(snap)
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// JPEG returns the latest annotated frame, or nil before the first frame.
func (b *Board) JPEG() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jpeg
}

// Watch subscribes to snapshots sent whenever the count or the last
// transmitted value changes. Slow watchers miss updates rather than block the
// loop. Call the returned func to unsubscribe.
func (b *Board) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	b.mu.Lock()
	b.watchers[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if _, ok := b.watchers[ch]; ok {
			delete(b.watchers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
}

func (b *Board) notify(snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
}
