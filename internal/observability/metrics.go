package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	stepCount    map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		stepCount:    make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordStep counts a pipeline step invocation by outcome.
func (m *Metrics) RecordStep(step string, ok bool) {
	if m == nil {
		return
	}
	key := step + "|" + strconv.FormatBool(ok)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stepCount[key]++
}

// StepCount returns the recorded count for a step and outcome.
func (m *Metrics) StepCount(step string, ok bool) int64 {
	if m == nil {
		return 0
	}
	key := step + "|" + strconv.FormatBool(ok)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepCount[key]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
