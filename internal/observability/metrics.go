package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps in-process counters for request outcomes and account flows.
type Metrics struct {
	mu            sync.Mutex
	requests      map[string]int64
	totalDuration map[string]time.Duration
	errors        map[string]int64
	accountFlows  map[string]int64
}

// NewMetrics initializes the counter maps.
func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		totalDuration: make(map[string]time.Duration),
		errors:        make(map[string]int64),
		accountFlows:  make(map[string]int64),
	}
}

// RecordRequest counts a completed request and accumulates its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[key]++
	m.totalDuration[key] += duration
}

// RecordError counts a request that ended in a classified error.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key]++
}

// RecordAccountFlow counts a completed account event, keyed by event type.
// Registration, email change, resend, reset request and removal all land here
// via the event dispatcher.
func (m *Metrics) RecordAccountFlow(flow string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountFlows[flow]++
}

// AccountFlowCount reports the current counter for one flow.
func (m *Metrics) AccountFlowCount(flow string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountFlows[flow]
}
