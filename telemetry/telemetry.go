// Package telemetry provides lightweight operation timing. Collectors are
// passed through context so library code can be instrumented without
// changing signatures; when no collector is attached, timers are no-ops.
//
// Example:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.StartTimer(ctx, "ledger.load")
//	// ... work ...
//	timer.End()
//
//	collector.Report(os.Stderr)
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type contextKey struct{}

// Timer tracks one operation in flight.
type Timer interface {
	// End records the operation's duration.
	End()
}

// Collector receives operation timings.
type Collector interface {
	// Start begins timing a named operation.
	Start(name string) Timer

	// Report writes the collected timings.
	Report(w io.Writer)
}

// WithCollector attaches a collector to the context.
func WithCollector(ctx context.Context, c Collector) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the attached collector, or nil.
func FromContext(ctx context.Context) Collector {
	c, _ := ctx.Value(contextKey{}).(Collector)
	return c
}

// StartTimer begins timing a named operation against the context's
// collector. Without a collector the returned timer does nothing.
func StartTimer(ctx context.Context, name string) Timer {
	if c := FromContext(ctx); c != nil {
		return c.Start(name)
	}
	return noopTimer{}
}

type noopTimer struct{}

func (noopTimer) End() {}

// TimingCollector records operation durations in start order.
type TimingCollector struct {
	mu      sync.Mutex
	entries []timing
}

type timing struct {
	name     string
	duration time.Duration
	done     bool
}

// NewTimingCollector creates an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{}
}

// Start begins timing a named operation.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, timing{name: name})
	return &timer{collector: c, index: len(c.entries) - 1, started: time.Now()}
}

// Report writes one line per completed operation.
func (c *TimingCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if !e.done {
			continue
		}
		fmt.Fprintf(w, "%-40s %s\n", e.name, e.duration.Round(time.Microsecond))
	}
}

type timer struct {
	collector *TimingCollector
	index     int
	started   time.Time
}

func (t *timer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	entry := &t.collector.entries[t.index]
	entry.duration = time.Since(t.started)
	entry.done = true
}
