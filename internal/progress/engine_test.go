package progress

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestEnginePublishesEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	engine := NewEngine(clock)
	snaps := make(chan Snapshot, 16)
	unsubscribe := engine.State().Subscribe(func(s Snapshot) { snaps <- s })
	defer unsubscribe()

	p := testProfile(base.Add(-24 * time.Hour))
	engine.Start(&p)
	defer engine.Stop()

	first := waitSnapshot(t, snaps)
	assert.True(t, first.Active())
	assert.InDelta(t, 20.0, first.Metrics.UnitsAvoided, 1e-9)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	second := waitSnapshot(t, snaps)
	assert.Equal(t, base.Add(time.Second), second.At)
	assert.Equal(t, first.Metrics.Elapsed+time.Second, second.Metrics.Elapsed)
	assert.Greater(t, second.Metrics.UnitsAvoided, first.Metrics.UnitsAvoided)
}

func TestEngineStopResetsAndSilences(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	engine := NewEngine(clock)
	p := testProfile(base.Add(-time.Hour))

	engine.Start(&p)
	assert.True(t, engine.Running())
	assert.True(t, engine.State().Get().Active())

	engine.Stop()
	assert.False(t, engine.Running())
	assert.Equal(t, Snapshot{}, engine.State().Get())

	var published atomic.Int32
	unsubscribe := engine.State().Subscribe(func(Snapshot) { published.Add(1) })
	defer unsubscribe()
	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, published.Load())
}

func TestEngineRestartReplacesProfile(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	engine := NewEngine(clock)

	a := testProfile(base.Add(-time.Hour))
	b := testProfile(base.Add(-48 * time.Hour))
	engine.Start(&a)
	engine.Start(&b)
	defer engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	snaps := make(chan Snapshot, 16)
	unsubscribe := engine.State().Subscribe(func(s Snapshot) { snaps <- s })
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		s := waitSnapshot(t, snaps)
		assert.True(t, s.Profile.QuitAt.Equal(b.QuitAt))
	}
}

func TestEngineStartNilStops(t *testing.T) {
	engine := NewEngine(clockwork.NewFakeClockAt(base))
	p := testProfile(base)
	engine.Start(&p)
	engine.Start(nil)
	assert.False(t, engine.Running())
	assert.False(t, engine.State().Get().Active())
}

func TestEngineCopiesProfile(t *testing.T) {
	engine := NewEngine(clockwork.NewFakeClockAt(base))
	p := testProfile(base.Add(-24 * time.Hour))
	engine.Start(&p)
	defer engine.Stop()

	p.DailyConsumption = 1000
	assert.Equal(t, 20, engine.State().Get().Profile.DailyConsumption)
}

func TestRepeaterStopWaits(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	r := NewRepeater(clock, time.Second)
	calls := make(chan time.Time, 16)

	r.Start(func(now time.Time) { calls <- now })
	assert.Equal(t, base, <-calls)

	r.Stop()
	r.Stop()
	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, calls)
}
