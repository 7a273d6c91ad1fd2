package store

import (
	"sync"

	"smarthome/backend/services/telemetry-service/internal/models"
)

// ReadingLog is the append-only, process-lifetime log of readings shared by the
// ingestion path and the render path.
//
// With a positive capacity the log is a ring buffer: once full, each append
// overwrites the oldest reading. Readings are always returned oldest first.
type ReadingLog struct {
	mu       sync.RWMutex
	readings []models.Reading
	capacity int
	head     int
}

// NewReadingLog returns an empty log. capacity <= 0 disables the bound.
func NewReadingLog(capacity int) *ReadingLog {
	if capacity < 0 {
		capacity = 0
	}
	l := &ReadingLog{capacity: capacity}
	if capacity > 0 {
		l.readings = make([]models.Reading, 0, capacity)
	}
	return l
}

// Append adds a reading at the end of the log and returns the reading that was
// last before it, if any.
func (l *ReadingLog) Append(r models.Reading) (models.Reading, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, hadPrev := l.latestLocked()

	if l.capacity == 0 || len(l.readings) < l.capacity {
		l.readings = append(l.readings, r)
		return prev, hadPrev
	}

	l.readings[l.head] = r
	l.head = (l.head + 1) % l.capacity
	return prev, hadPrev
}

// Snapshot returns a copy of the retained readings in insertion order.
func (l *ReadingLog) Snapshot() []models.Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Reading, 0, len(l.readings))
	out = append(out, l.readings[l.head:]...)
	out = append(out, l.readings[:l.head]...)
	return out
}

// Latest returns the most recently appended reading.
func (l *ReadingLog) Latest() (models.Reading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latestLocked()
}

// Len returns the number of retained readings.
func (l *ReadingLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.readings)
}

// Capacity returns the configured bound, 0 when unbounded.
func (l *ReadingLog) Capacity() int {
	return l.capacity
}

func (l *ReadingLog) latestLocked() (models.Reading, bool) {
	n := len(l.readings)
	if n == 0 {
		return models.Reading{}, false
	}
	if l.head == 0 {
		return l.readings[n-1], true
	}
	return l.readings[l.head-1], true
}
