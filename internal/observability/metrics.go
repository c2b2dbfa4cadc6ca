package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	refetchCount  map[string]int64
	refetchErrors map[string]int64
	discarded     map[string]int64
	dispatches    DispatchCounters
	startedAt     time.Time
}

// DispatchCounters accumulates emergency fan-out outcomes.
type DispatchCounters struct {
	Dispatches int64 `json:"dispatches"`
	Recipients int64 `json:"recipients"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	UptimeSeconds int64            `json:"uptimeSeconds"`
	Requests      map[string]int64 `json:"requests"`
	Errors        map[string]int64 `json:"errors"`
	Refetches     map[string]int64 `json:"refetches"`
	RefetchErrors map[string]int64 `json:"refetchErrors"`
	Discarded     map[string]int64 `json:"discarded"`
	Dispatch      DispatchCounters `json:"dispatch"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		refetchCount:  make(map[string]int64),
		refetchErrors: make(map[string]int64),
		discarded:     make(map[string]int64),
		startedAt:     time.Now(),
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

// RecordRefetch counts a view query execution.
func (m *Metrics) RecordRefetch(view, query string, err error) {
	if m == nil {
		return
	}
	key := view + "|" + query
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refetchCount[key]++
	if err != nil {
		m.refetchErrors[key]++
	}
}

// RecordDiscard counts a change event a view screened out as irrelevant.
func (m *Metrics) RecordDiscard(view, table string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded[view+"|"+table]++
}

// RecordDispatch counts one fan-out and its per-recipient results.
func (m *Metrics) RecordDispatch(recipients, sent int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches.Dispatches++
	m.dispatches.Recipients += int64(recipients)
	m.dispatches.Sent += int64(sent)
	m.dispatches.Failed += int64(recipients - sent)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Requests:      copyCounts(m.requestCount),
		Errors:        copyCounts(m.errorCount),
		Refetches:     copyCounts(m.refetchCount),
		RefetchErrors: copyCounts(m.refetchErrors),
		Discarded:     copyCounts(m.discarded),
		Dispatch:      m.dispatches,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
