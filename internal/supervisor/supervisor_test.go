package supervisor

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SinaHkz/typed-pipeline/internal/logging"
	"github.com/SinaHkz/typed-pipeline/internal/producer"
	"github.com/SinaHkz/typed-pipeline/pkg/backlog"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testConfig(n int, kinds ...types.Kind) Config {
	return Config{
		BatchSize:      n,
		Kinds:          kinds,
		IntakeCapacity: 2,
		Source:         &producer.Sequence{Kinds: kinds, Costs: []int{10}},
		Sleeper:        noSleep,
		Duration:       types.Linear(time.Millisecond),
	}
}

func drain(events <-chan types.Event) []types.Event {
	var out []types.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestSupervisorCompletes(t *testing.T) {
	events := make(chan types.Event)
	var wg sync.WaitGroup
	var bl backlog.Counter

	s := New(testConfig(9, "XML", "JSON", "XLS"), context.Background(), events, &bl, &wg, logging.Discard())
	s.Start()

	got := drain(events)
	wg.Wait()

	require.NoError(t, s.Err())
	require.Len(t, got, 9*3+1)
	assert.Equal(t, types.Complete, got[len(got)-1].Type)
	assert.Zero(t, bl.Load())

	intake, perKind := s.Depths()
	assert.Zero(t, intake)
	assert.Equal(t, map[types.Kind]int{"XML": 0, "JSON": 0, "XLS": 0}, perKind)
}

func TestSupervisorStop(t *testing.T) {
	events := make(chan types.Event, 1024)
	var wg sync.WaitGroup

	cfg := testConfig(1000, "A", "B")
	cfg.Duration = types.Linear(time.Hour)
	cfg.Sleeper = types.Sleep

	s := New(cfg, context.Background(), events, new(backlog.Counter), &wg, logging.Discard())
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	got := drain(events)
	wg.Wait()

	require.ErrorIs(t, s.Err(), context.Canceled)
	for _, ev := range got {
		assert.NotEqual(t, types.Complete, ev.Type)
	}
}

func TestSupervisorParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan types.Event, 16)
	var wg sync.WaitGroup

	cfg := testConfig(3, "A")
	cfg.Source = &producer.Sequence{Intervals: []time.Duration{time.Hour}, Kinds: []types.Kind{"A"}, Costs: []int{1}}
	cfg.Sleeper = types.Sleep

	s := New(cfg, ctx, events, new(backlog.Counter), &wg, logging.Discard())
	s.Start()
	cancel()

	assert.Empty(t, drain(events))
	wg.Wait()
	require.ErrorIs(t, s.Err(), context.Canceled)
}

func TestSupervisorLogsTopology(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := testConfig(2, "XML", "JSON")
	cfg.KindCapacity = 4
	events := make(chan types.Event)
	var wg sync.WaitGroup

	s := New(cfg, context.Background(), events, new(backlog.Counter), &wg, logger)
	s.Start()
	drain(events)
	wg.Wait()
	require.NoError(t, s.Err())

	out := buf.String()
	assert.Contains(t, out, "queue=intake capacity=2")
	assert.Contains(t, out, "queue=XML capacity=4")
	assert.Contains(t, out, "queue=JSON capacity=4")
	assert.Contains(t, out, `msg="worker launched" kind=XML`)
	assert.Contains(t, out, `msg="worker launched" kind=JSON`)
}
