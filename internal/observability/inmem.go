package observability

import "sync"

// observe is one ring-buffer sample; only the fields relevant to Kind are set.
type observe struct {
	Kind    string  `json:"kind"`
	Entity  string  `json:"entity,omitempty"`
	Source  string  `json:"source,omitempty"`
	Op      string  `json:"op,omitempty"`
	Method  string  `json:"method,omitempty"`
	Route   string  `json:"route,omitempty"`
	Topic   string  `json:"topic,omitempty"`
	Status  int     `json:"status,omitempty"`
	CacheMs float64 `json:"cache_ms,omitempty"`
	DBMs    float64 `json:"db_ms,omitempty"`
	DurMs   float64 `json:"dur_ms,omitempty"`
	OK      bool    `json:"ok"`
}

// Inmem keeps the last max samples plus running cache totals. It backs the
// /debug/metrics endpoint; nothing is exported to an external collector.
type Inmem struct {
	mu     sync.Mutex
	last   []*observe
	max    int
	totals struct {
		cacheHits, cacheMiss int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *observe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

func (m *Inmem) ObserveLookup(entity, source string, cacheMs, dbMs float64) {
	m.push(&observe{Kind: "lookup", Entity: entity, Source: source, CacheMs: cacheMs, DBMs: dbMs, OK: true})
}

func (m *Inmem) ObserveMutation(entity, op string, dbMs float64) {
	m.push(&observe{Kind: "mutation", Entity: entity, Op: op, DBMs: dbMs, OK: true})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(&observe{Kind: "http", Method: method, Route: route, Status: status, DurMs: durMs, OK: status < 500})
}

func (m *Inmem) ObserveConsume(topic, op string, processMs float64, ok bool) {
	m.push(&observe{Kind: "consume", Topic: topic, Op: op, DurMs: processMs, OK: ok})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}

type Snapshot struct {
	CacheHits   int        `json:"cache_hits"`
	CacheMisses int        `json:"cache_misses"`
	Recent      []*observe `json:"recent"`
}

func (m *Inmem) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	recent := make([]*observe, len(m.last))
	copy(recent, m.last)
	return Snapshot{
		CacheHits:   m.totals.cacheHits,
		CacheMisses: m.totals.cacheMiss,
		Recent:      recent,
	}
}
