package metrics

import (
	"sync"
	"time"
)

// Collector captures lightweight instrumentation for query execution.
type Collector interface {
	RecordQuery(table, operation string, duration time.Duration, err error)
}

// NoopCollector discards all metrics.
type NoopCollector struct{}

// RecordQuery implements Collector.
func (NoopCollector) RecordQuery(string, string, time.Duration, error) {}

// MultiCollector fan-outs events to multiple collectors.
type MultiCollector []Collector

// RecordQuery implements Collector.
func (mc MultiCollector) RecordQuery(table, operation string, duration time.Duration, err error) {
	for _, c := range mc {
		if c == nil {
			continue
		}
		c.RecordQuery(table, operation, duration, err)
	}
}

// WithCollector returns a collector that fans out to all provided collectors.
func WithCollector(primary Collector, others ...Collector) Collector {
	collectors := make([]Collector, 0, 1+len(others))
	if primary != nil {
		collectors = append(collectors, primary)
	}
	for _, c := range others {
		if c != nil {
			collectors = append(collectors, c)
		}
	}
	switch len(collectors) {
	case 0:
		return NoopCollector{}
	case 1:
		return collectors[0]
	default:
		return MultiCollector(collectors)
	}
}

// QueryStats aggregates the queries recorded for one table/operation pair.
type QueryStats struct {
	Table     string
	Operation string
	Count     int
	Errors    int
	Total     time.Duration
}

// Mean returns the average query duration.
func (s QueryStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type statsKey struct {
	table     string
	operation string
}

// InMemoryCollector keeps per table/operation counters. It is safe for concurrent use.
type InMemoryCollector struct {
	mu    sync.Mutex
	stats map[statsKey]*QueryStats
	order []statsKey
}

func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{stats: make(map[statsKey]*QueryStats)}
}

// RecordQuery implements Collector.
func (c *InMemoryCollector) RecordQuery(table, operation string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		c.stats = make(map[statsKey]*QueryStats)
	}
	key := statsKey{table: table, operation: operation}
	entry, ok := c.stats[key]
	if !ok {
		entry = &QueryStats{Table: table, Operation: operation}
		c.stats[key] = entry
		c.order = append(c.order, key)
	}
	entry.Count++
	entry.Total += duration
	if err != nil {
		entry.Errors++
	}
}

// Snapshot returns the stats in first-seen order.
func (c *InMemoryCollector) Snapshot() []QueryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]QueryStats, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.stats[key])
	}
	return out
}
