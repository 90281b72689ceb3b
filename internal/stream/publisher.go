// Package stream publishes pendulum snapshots to Redis so other processes
// can follow a running simulation.
//
// The physics loop hands snapshots to [Publisher.OnStep], which never
// blocks: snapshots queue in a small buffer and are dropped when it is full.
// [Publisher.Run] drains the buffer through a circuit breaker, so a dead
// broker costs one fast failure per snapshot instead of a network timeout.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/san-kum/dpend/internal/logging"
	"github.com/san-kum/dpend/internal/pendulum"
	"github.com/san-kum/dpend/internal/sim"
)

// Client is the subset of *redis.Client the publisher needs.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type Message struct {
	Step  int            `json:"step"`
	Time  float64        `json:"time"`
	Dt    float64        `json:"dt"`
	State pendulum.State `json:"state"`
}

func MessageFromSnapshot(s sim.Snapshot) Message {
	return Message{Step: s.Step, Time: s.Time, Dt: s.Dt, State: s.State}
}

func DecodeMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return m, nil
}

type Options struct {
	Channel   string
	LatestKey string
	// LatestTTL expires the latest key when the publisher goes away.
	LatestTTL time.Duration
	QueueSize int

	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
}

func DefaultOptions() Options {
	return Options{
		Channel:                "dpend.step",
		LatestKey:              "dpend:latest",
		LatestTTL:              10 * time.Second,
		QueueSize:              64,
		MaxConsecutiveFailures: 5,
		OpenTimeout:            5 * time.Second,
	}
}

type Publisher struct {
	client  Client
	opts    Options
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	queue   chan sim.Snapshot

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func NewPublisher(client Client, opts Options, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions().QueueSize
	}
	if opts.MaxConsecutiveFailures == 0 {
		opts.MaxConsecutiveFailures = DefaultOptions().MaxConsecutiveFailures
	}

	settings := gobreaker.Settings{
		Name:    "redis-publish",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Publisher{
		client:  client,
		opts:    opts,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		queue:   make(chan sim.Snapshot, opts.QueueSize),
	}
}

// Publish sends one snapshot on the channel and stores it under the latest
// key. It fails fast while the breaker is open.
func (p *Publisher) Publish(ctx context.Context, s sim.Snapshot) error {
	payload, err := json.Marshal(MessageFromSnapshot(s))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		if err := p.client.Publish(ctx, p.opts.Channel, payload).Err(); err != nil {
			return nil, err
		}
		if p.opts.LatestKey == "" {
			return nil, nil
		}
		return nil, p.client.Set(ctx, p.opts.LatestKey, payload, p.opts.LatestTTL).Err()
	})
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("circuit breaker: %w", err)
	}

	p.published.Add(1)
	return nil
}

// OnStep queues s for Run without blocking.
func (p *Publisher) OnStep(s sim.Snapshot) {
	select {
	case p.queue <- s:
	default:
		p.dropped.Add(1)
	}
}

// Run publishes queued snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-p.queue:
			err := p.Publish(ctx, s)
			if err == nil {
				continue
			}
			if errors.Is(err, gobreaker.ErrOpenState) {
				p.logger.Debug(ctx, "snapshot skipped, breaker open", "step", s.Step)
				continue
			}
			p.logger.Error(ctx, "publish snapshot", err, "step", s.Step)
		}
	}
}

func (p *Publisher) State() gobreaker.State { return p.breaker.State() }

type Stats struct {
	Published uint64
	Dropped   uint64
	Failed    uint64
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}
