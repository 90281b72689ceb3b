package stream

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/san-kum/dpend/internal/logging"
)

// Watch subscribes to channel and calls fn for every decoded snapshot until
// ctx is done. Undecodable payloads are logged and skipped.
func Watch(ctx context.Context, client *redis.Client, channel string, logger *logging.Logger, fn func(Message)) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return logging.WrapError(err, "subscribe %s", channel)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			m, err := DecodeMessage([]byte(msg.Payload))
			if err != nil {
				logger.Warn(ctx, "skipping message", "error", err.Error())
				continue
			}
			fn(m)
		}
	}
}

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, logging.WrapError(err, "connect to redis at %s", addr)
	}
	return client, nil
}
