// Package redis receives item lifecycle events published on a Redis pub/sub
// channel and forwards them to an event emitter.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/cadence/internal/events"
)

const connectTimeout = 5 * time.Second

// Subscriber forwards events from one Redis channel to an emitter.
type Subscriber struct {
	rdb     *goredis.Client
	channel string
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewSubscriber connects to the Redis server at addr and checks it answers.
func NewSubscriber(
	ctx context.Context,
	addr, channel string,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*Subscriber, error) {
	if emitter == nil {
		return nil, errors.New("emitter required")
	}
	if channel == "" {
		return nil, errors.New("channel required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: connectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Subscriber{
		rdb:     rdb,
		channel: channel,
		emitter: emitter,
		logger: logger.With(
			slog.String("component", "redis_item_subscriber"),
			slog.String("channel", channel)),
	}, nil
}

// Publish sends event on the subscriber's channel.
func (s *Subscriber) Publish(ctx context.Context, event *events.ItemEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, raw).Err()
}

// Run subscribes to the channel and dispatches messages until ctx is done
// or the subscription closes. It returns once the subscription has ended.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer func() { _ = sub.Close() }()

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	s.logger.Info("subscribed to item events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok || m == nil {
				return nil
			}
			if err := s.dispatch(ctx, m.Payload); err != nil {
				s.logger.Warn("failed to handle item event", slog.String("error", err.Error()))
			}
		}
	}
}

// Close closes the Redis client.
func (s *Subscriber) Close() error {
	return s.rdb.Close()
}

func (s *Subscriber) dispatch(ctx context.Context, payload string) error {
	return decodeAndEmit(ctx, s.emitter, payload)
}

// decodeAndEmit decodes one message payload and emits it.
func decodeAndEmit(ctx context.Context, emitter events.EventEmitter, payload string) error {
	var event events.ItemEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return fmt.Errorf("%w: bad payload: %w", events.ErrInvalidEvent, err)
	}
	return emitter.EmitEvent(ctx, &event)
}
