package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func event(sessionID string, kind entity.EventKind, chunk string) *entity.AssistEvent {
	return &entity.AssistEvent{SessionID: sessionID, Kind: kind, Mode: entity.ModeChat, Chunk: chunk}
}

func collect(t *testing.T, ch <-chan *entity.AssistEvent) []*entity.AssistEvent {
	t.Helper()
	var out []*entity.AssistEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, evt)
		case <-timeout:
			t.Fatal("subscription did not finish")
			return out
		}
	}
}

func kinds(events []*entity.AssistEvent) []entity.EventKind {
	out := make([]entity.EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

type busFactory func(t *testing.T) service.EventBus

func busFactories() map[string]busFactory {
	return map[string]busFactory{
		"memory": func(t *testing.T) service.EventBus {
			return NewMemoryBus(time.Minute)
		},
		"redis": func(t *testing.T) service.EventBus {
			client, _ := setupTestRedis(t)
			return NewRedisBus(client, RedisBusConfig{BlockTimeout: 100 * time.Millisecond})
		},
	}
}

func TestBusReplayFromStart(t *testing.T) {
	for name, newBus := range busFactories() {
		t.Run(name, func(t *testing.T) {
			bus := newBus(t)
			ctx := context.Background()

			require.NoError(t, bus.Publish(ctx, event("s1", entity.EventThinking, "")))
			require.NoError(t, bus.Publish(ctx, event("s1", entity.EventChunk, "Hel")))
			require.NoError(t, bus.Publish(ctx, event("s1", entity.EventChunk, "lo")))
			require.NoError(t, bus.Publish(ctx, event("s1", entity.EventEnd, "")))
			require.NoError(t, bus.Publish(ctx, event("s1", entity.EventClosed, "")))

			ch, err := bus.Subscribe(ctx, "s1")
			require.NoError(t, err)
			got := collect(t, ch)

			assert.Equal(t, []entity.EventKind{
				entity.EventThinking, entity.EventChunk, entity.EventChunk, entity.EventEnd, entity.EventClosed,
			}, kinds(got))
			assert.Equal(t, "Hel", got[1].Chunk)
			assert.Equal(t, "lo", got[2].Chunk)
		})
	}
}

func TestBusFollowsLiveEvents(t *testing.T) {
	for name, newBus := range busFactories() {
		t.Run(name, func(t *testing.T) {
			bus := newBus(t)
			ctx := context.Background()

			require.NoError(t, bus.Publish(ctx, event("s2", entity.EventThinking, "")))
			ch, err := bus.Subscribe(ctx, "s2")
			require.NoError(t, err)

			go func() {
				time.Sleep(50 * time.Millisecond)
				_ = bus.Publish(ctx, event("s2", entity.EventChunk, "a"))
				_ = bus.Publish(ctx, event("s2", entity.EventError, ""))
				_ = bus.Publish(ctx, event("s2", entity.EventClosed, ""))
			}()

			got := collect(t, ch)
			assert.Equal(t, []entity.EventKind{
				entity.EventThinking, entity.EventChunk, entity.EventError, entity.EventClosed,
			}, kinds(got))
		})
	}
}

func TestBusUnknownSession(t *testing.T) {
	for name, newBus := range busFactories() {
		t.Run(name, func(t *testing.T) {
			_, err := newBus(t).Subscribe(context.Background(), "nope")
			assert.ErrorIs(t, err, errors.ErrSessionNotFound)
		})
	}
}

func TestBusSubscriptionStopsOnContextCancel(t *testing.T) {
	for name, newBus := range busFactories() {
		t.Run(name, func(t *testing.T) {
			bus := newBus(t)
			require.NoError(t, bus.Publish(context.Background(), event("s3", entity.EventThinking, "")))

			ctx, cancel := context.WithCancel(context.Background())
			ch, err := bus.Subscribe(ctx, "s3")
			require.NoError(t, err)

			<-ch
			cancel()
			collect(t, ch)
		})
	}
}

func TestMemoryBusDropsEventsAfterClose(t *testing.T) {
	bus := NewMemoryBus(time.Minute)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, event("s4", entity.EventClosed, "")))
	require.NoError(t, bus.Publish(ctx, event("s4", entity.EventChunk, "late")))

	ch, err := bus.Subscribe(ctx, "s4")
	require.NoError(t, err)
	assert.Equal(t, []entity.EventKind{entity.EventClosed}, kinds(collect(t, ch)))
}

func TestMemoryBusPrunesClosedSessions(t *testing.T) {
	bus := NewMemoryBus(time.Minute)
	now := time.Unix(1000, 0)
	bus.nowFn = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, event("old", entity.EventClosed, "")))
	now = now.Add(2 * time.Minute)
	require.NoError(t, bus.Publish(ctx, event("new", entity.EventThinking, "")))

	_, err := bus.Subscribe(ctx, "old")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
	_, err = bus.Subscribe(ctx, "new")
	assert.NoError(t, err)
}

func TestRedisBusSetsRetention(t *testing.T) {
	client, mr := setupTestRedis(t)
	bus := NewRedisBus(client, RedisBusConfig{Retention: time.Minute})

	require.NoError(t, bus.Publish(context.Background(), event("s5", entity.EventThinking, "")))

	key := string(SessionStream("s5"))
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestRedisBusCarriesRequestContext(t *testing.T) {
	client, _ := setupTestRedis(t)
	bus := NewRedisBus(client, RedisBusConfig{})

	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-42")
	ctx = logger.WithContext(ctx, logger.TraceIDKey, "trace-7")
	evt := event("s6", entity.EventChunk, "hi")
	evt.ProjectID = "p1"
	require.NoError(t, bus.Publish(ctx, evt))

	msgs, err := client.XRange(context.Background(), string(SessionStream("s6")), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msgCtx, got, ok := decodeEvent(context.Background(), msgs[0])
	require.True(t, ok)
	assert.Equal(t, "hi", got.Chunk)
	assert.Equal(t, "req-42", logger.RequestIDFromContext(msgCtx))
	assert.Equal(t, "trace-7", logger.TraceIDFromContext(msgCtx))
	assert.Equal(t, "p1", logger.StringFromContext(msgCtx, logger.ProjectIDKey))
}

func TestDecodeEventSkipsMalformed(t *testing.T) {
	ctx := context.Background()

	_, _, ok := decodeEvent(ctx, redis.XMessage{ID: "1-0", Values: map[string]interface{}{"other": "x"}})
	assert.False(t, ok)

	_, _, ok = decodeEvent(ctx, redis.XMessage{ID: "2-0", Values: map[string]interface{}{"data": "{not json"}})
	assert.False(t, ok)
}
