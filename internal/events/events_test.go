package events

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/scoracle-sync/internal/store"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	t.Parallel()
	bus := NewBus(nil)
	var a, b atomic.Int32
	bus.Subscribe(func(context.Context, SyncCompleted) { a.Add(1) })
	unsubscribe := bus.Subscribe(func(context.Context, SyncCompleted) { b.Add(1) })

	bus.Publish(context.Background(), SyncCompleted{RunID: "r1"})
	unsubscribe()
	bus.Publish(context.Background(), SyncCompleted{RunID: "r2"})

	assert.Equal(t, int32(2), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	t.Parallel()
	bus := NewBus(nil)
	var called atomic.Bool
	bus.Subscribe(func(context.Context, SyncCompleted) { panic("boom") })
	bus.Subscribe(func(context.Context, SyncCompleted) { called.Store(true) })

	assert.NotPanics(t, func() { bus.Publish(context.Background(), SyncCompleted{}) })
	assert.True(t, called.Load())
}

func TestNilBusDropsEvents(t *testing.T) {
	t.Parallel()
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(context.Background(), SyncCompleted{}) })
}

func TestChanged(t *testing.T) {
	t.Parallel()
	ev := SyncCompleted{Results: []StepSummary{
		{Kind: store.KindCountries, OK: 3},
		{Kind: store.KindLeagues},
		{Kind: store.KindTeams, OK: 1, Fail: 2},
	}}
	assert.Equal(t, []store.Kind{store.KindCountries, store.KindTeams}, ev.Changed())

	ev.DryRun = true
	assert.Empty(t, ev.Changed())
}
