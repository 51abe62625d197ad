package station

import (
	"sync"
	"time"
)

// EventCycleCompleted names a finished cycle on the live stream.
const EventCycleCompleted = "cycle.completed"

// CycleReport summarises one sync cycle.
type CycleReport struct {
	Cycle         uint64    `json:"cycle"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
	RoomID        string    `json:"room_id"`
	DirectorySize int       `json:"directory_size"`
	DevicesSeen   int       `json:"devices_seen"`
	Matched       int       `json:"matched"`
	Published     int       `json:"published"`
	Failed        int       `json:"failed"`
	Error         string    `json:"error,omitempty"`
}

// StatusBoard holds the latest loop outputs for readers on other goroutines.
//
// Thread Safety: All methods are safe for concurrent use.
type StatusBoard struct {
	mu     sync.RWMutex
	last   CycleReport
	cycles uint64
}

// NewStatusBoard creates an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Publish records a completed cycle.
func (b *StatusBoard) Publish(report CycleReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = report
	b.cycles++
}

// Last returns the most recent report. ok is false before the first cycle.
func (b *StatusBoard) Last() (report CycleReport, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.cycles > 0
}

// Cycles returns the number of completed cycles.
func (b *StatusBoard) Cycles() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cycles
}
