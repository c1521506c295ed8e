package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisEventSource_Dispatch(t *testing.T) {
	s := &RedisEventSource{logger: logging.Discard()}
	ctx := context.Background()

	var got []*Event
	h := func(_ context.Context, ev *Event) { got = append(got, ev) }

	s.dispatch(ctx, `{"uid":"u1","email":"a@x.io"}`, h)
	s.dispatch(ctx, `null`, h)
	s.dispatch(ctx, `{broken`, h)

	require.Len(t, got, 2)
	assert.Equal(t, &Event{UID: "u1", Email: "a@x.io"}, got[0])
	assert.Nil(t, got[1])
}

func TestRedisEventSource_SubscribePublish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	src := NewRedisEventSource(rdb, "auth_state_events", logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan *Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- src.Subscribe(ctx, func(_ context.Context, ev *Event) { events <- ev })
	}()

	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("auth_state_events")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, src.Publish(ctx, &Event{UID: "u1", Email: "a@x.io"}))
	require.NoError(t, src.Publish(ctx, nil))

	select {
	case ev := <-events:
		assert.Equal(t, &Event{UID: "u1", Email: "a@x.io"}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case ev := <-events:
		assert.Nil(t, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("sign-out not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return")
	}
}
