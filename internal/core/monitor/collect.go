package monitor

import (
	"sync"
)

// CollectMonitor records counters and errors in memory. Tests use it to
// observe what an operation reported.
type CollectMonitor struct {
	mu       sync.Mutex
	counters [numCounters]int64
	errors   []error
}

// NewCollect returns an empty CollectMonitor.
func NewCollect() *CollectMonitor {
	return &CollectMonitor{}
}

func (m *CollectMonitor) Count(c Counter, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[c] += int64(n)
}

func (m *CollectMonitor) StartTask(name string) Task {
	return nopTask{}
}

func (m *CollectMonitor) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

// GetCounter returns the accumulated value of one counter.
func (m *CollectMonitor) GetCounter(c Counter) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[c]
}

// Errors returns all errors reported so far.
func (m *CollectMonitor) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errors...)
}

// ErrorCount returns how many errors were reported.
func (m *CollectMonitor) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}
