package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestStartTimerWithoutCollector(t *testing.T) {
	// Without a collector the timer is a no-op and End must be safe.
	timer := StartTimer(context.Background(), "op")
	timer.End()
}

func TestTimingCollector(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)

	timer := StartTimer(ctx, "ledger.load")
	timer.End()

	// Timers still running are not reported.
	_ = StartTimer(ctx, "ledger.save")

	var b strings.Builder
	collector.Report(&b)

	assert.True(t, strings.Contains(b.String(), "ledger.load"))
	assert.False(t, strings.Contains(b.String(), "ledger.save"))
}

func TestFromContext(t *testing.T) {
	assert.Zero(t, FromContext(context.Background()))

	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)
	assert.Equal(t, Collector(collector), FromContext(ctx))
}
