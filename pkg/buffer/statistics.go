package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics counts buffer activity. Counters are updated on the hot path of
// every Write and Read, so they are plain atomics; the size high-water mark
// needs a compare-and-update and sits behind the mutex.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	peeks     atomic.Int64
	overflows atomic.Int64
	drops     atomic.Int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a tracker with the uptime clock started
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Write records one write
func (s *Statistics) Write() {
	s.writes.Add(1)
}

// Read records one read
func (s *Statistics) Read() {
	s.reads.Add(1)
}

// Peek records one peek
func (s *Statistics) Peek() {
	s.peeks.Add(1)
}

// Overflow records a write that found the buffer full
func (s *Statistics) Overflow() {
	s.overflows.Add(1)
}

// Drop records an item discarded by the overflow policy
func (s *Statistics) Drop() {
	s.drops.Add(1)
}

// UpdateSize records the size after an operation and tracks the high-water
// mark, which is what sizing reviews of the playback queue actually read
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Writes returns the total write count
func (s *Statistics) Writes() int64 {
	return s.writes.Load()
}

// Reads returns the total read count
func (s *Statistics) Reads() int64 {
	return s.reads.Load()
}

// Peeks returns the total peek count
func (s *Statistics) Peeks() int64 {
	return s.peeks.Load()
}

// Overflows returns how many writes found the buffer full
func (s *Statistics) Overflows() int64 {
	return s.overflows.Load()
}

// Drops returns how many items the overflow policy discarded
func (s *Statistics) Drops() int64 {
	return s.drops.Load()
}

// CurrentSize returns the item count after the last operation
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the high-water mark of the item count
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// DropRate returns the fraction of writes that ended in a drop, 0.0 to 1.0.
// A rising drop rate on the playback queue means the server is sending audio
// faster than the codec drains it.
func (s *Statistics) DropRate() float64 {
	writes := s.Writes()
	if writes == 0 {
		return 0.0
	}
	return float64(s.Drops()) / float64(writes)
}

// Utilization returns the current fill level relative to capacity, 0.0 to 1.0
func (s *Statistics) Utilization(capacity int64) float64 {
	if capacity == 0 {
		return 0.0
	}
	return float64(s.CurrentSize()) / float64(capacity)
}

// Uptime returns how long the buffer has existed
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// StatsSummary is a point-in-time snapshot of all counters
type StatsSummary struct {
	Writes      int64         `json:"writes"`
	Reads       int64         `json:"reads"`
	Peeks       int64         `json:"peeks"`
	Overflows   int64         `json:"overflows"`
	Drops       int64         `json:"drops"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	DropRate    float64       `json:"drop_rate"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary snapshots the counters. The counters keep moving while the snapshot
// is taken, so the fields are individually consistent, not mutually.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:      s.Writes(),
		Reads:       s.Reads(),
		Peeks:       s.Peeks(),
		Overflows:   s.Overflows(),
		Drops:       s.Drops(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		DropRate:    s.DropRate(),
		Uptime:      s.Uptime(),
	}
}
