package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Event is an auth state change. Handlers receive nil when the user signed out.
type Event struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Handler is invoked for each auth state change.
type Handler func(ctx context.Context, ev *Event)

// EventSource delivers auth state changes until ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context, h Handler) error
}

// RedisEventSource listens on a Redis pub/sub channel where the web tier
// publishes {"uid": ..., "email": ...} after signup, login or profile update,
// and null on sign-out.
type RedisEventSource struct {
	rdb     *redis.Client
	channel string
	logger  logging.Logger
}

func NewRedisEventSource(rdb *redis.Client, channel string, logger logging.Logger) *RedisEventSource {
	return &RedisEventSource{rdb: rdb, channel: channel, logger: logger.With("module", "auth_events")}
}

// Subscribe blocks, dispatching every message to h, until ctx is canceled or
// the subscription is closed.
func (s *RedisEventSource) Subscribe(ctx context.Context, h Handler) error {
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer sub.Close()

	// wait for confirmation that subscription is created
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	s.logger.Info(ctx, "subscribed to auth events", "channel", s.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(ctx, msg.Payload, h)
		}
	}
}

// Publish sends ev (nil for sign-out) to the channel.
func (s *RedisEventSource) Publish(ctx context.Context, ev *Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, b).Err()
}

func (s *RedisEventSource) dispatch(ctx context.Context, payload string, h Handler) {
	var ev *Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		s.logger.Warn(ctx, "failed to parse auth event", "error", err)
		return
	}
	h(ctx, ev)
}
