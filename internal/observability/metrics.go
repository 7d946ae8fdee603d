package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                sync.Mutex
	requestCount      map[string]int64
	errorCount        map[string]int64
	notificationCount map[string]int64
	sweepItems        map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:      make(map[string]int64),
		errorCount:        make(map[string]int64),
		notificationCount: make(map[string]int64),
		sweepItems:        make(map[string]int64),
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

// RecordNotification counts notification writes by kind and outcome.
func (m *Metrics) RecordNotification(kind string, ok bool) {
	if m == nil {
		return
	}
	key := kind + "|" + outcome(ok)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationCount[key]++
}

// RecordSweepItem counts items processed by a sweep, split by outcome.
func (m *Metrics) RecordSweepItem(sweep, result string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepItems[sweep+"|"+result]++
}

// Snapshot copies all counters for the metrics endpoint.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]map[string]int64{
		"requests":      copyCounts(m.requestCount),
		"errors":        copyCounts(m.errorCount),
		"notifications": copyCounts(m.notificationCount),
		"sweep_items":   copyCounts(m.sweepItems),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
