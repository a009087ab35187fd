package messaging

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

func testBus(async bool) *InMemoryEventBus {
	return NewInMemoryEventBus(Config{
		AsyncMode:      async,
		WorkerPoolSize: 2,
		Logger:         logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError}),
	})
}

func testEvent() shared.Event {
	return shared.XPUpdatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventXPUpdated, time.Now()),
		Amount:    60,
		TotalXP:   60,
	}
}

func TestPublish_DeliversToTypedSubscribers(t *testing.T) {
	bus := testBus(false)

	var got shared.Event
	err := bus.Subscribe(shared.EventXPUpdated, func(e shared.Event) { got = e })
	assert.NoError(t, err)

	bus.Publish(testEvent())

	assert.NotNil(t, got)
	assert.Equal(t, shared.EventXPUpdated, got.EventType())
}

func TestPublish_SkipsOtherEventTypes(t *testing.T) {
	bus := testBus(false)

	called := false
	_ = bus.Subscribe(shared.EventLevelUp, func(e shared.Event) { called = true })

	bus.Publish(testEvent())
	assert.False(t, called)
}

func TestSubscribeAll_ReceivesEverything(t *testing.T) {
	bus := testBus(false)

	var count int
	_ = bus.SubscribeAll(func(e shared.Event) { count++ })

	bus.Publish(testEvent())
	bus.Publish(shared.LevelUpEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, time.Now()),
		OldLevel:  1,
		NewLevel:  2,
	})

	assert.Equal(t, 2, count)
}

func TestSubscribe_NilHandlerRejected(t *testing.T) {
	bus := testBus(false)
	assert.ErrorIs(t, bus.Subscribe(shared.EventXPUpdated, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
}

func TestPublish_PanickingHandlerIsContained(t *testing.T) {
	bus := testBus(false)

	delivered := false
	_ = bus.Subscribe(shared.EventXPUpdated, func(e shared.Event) { panic("boom") })
	_ = bus.SubscribeAll(func(e shared.Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(testEvent()) })
	assert.True(t, delivered)
}

func TestAsyncPublish_DeliversOnWorkerPool(t *testing.T) {
	bus := testBus(true)

	var count atomic.Int32
	_ = bus.SubscribeAll(func(e shared.Event) { count.Add(1) })

	for i := 0; i < 10; i++ {
		bus.Publish(testEvent())
	}

	assert.Eventually(t, func() bool { return count.Load() == 10 },
		2*time.Second, 5*time.Millisecond)
	assert.NoError(t, bus.Close())
}

func TestClosedBus(t *testing.T) {
	bus := testBus(false)
	assert.NoError(t, bus.Close())

	// Publishing after close is a silent no-op; subscribing is an error.
	assert.NotPanics(t, func() { bus.Publish(testEvent()) })
	assert.ErrorIs(t, bus.Subscribe(shared.EventXPUpdated, func(e shared.Event) {}), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(e shared.Event) {}), ErrEventBusClosed)

	// A second close is harmless.
	assert.NoError(t, bus.Close())
}
