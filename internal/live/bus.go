package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the redis pub/sub channel carrying change notices.
const DefaultChannel = "request-service:changes"

// Bus carries change notices between writers and feeds, possibly across
// processes.
type Bus interface {
	Publish(ctx context.Context, c Collection) error
	Subscribe(ctx context.Context) (<-chan Collection, error)
}

// RedisBus fans change notices out through redis pub/sub so every instance
// of the service refreshes its subscribers.
type RedisBus struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBus(rdb *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{rdb: rdb, channel: channel}
}

func (b *RedisBus) Publish(ctx context.Context, c Collection) error {
	if err := b.rdb.Publish(ctx, b.channel, string(c)).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", c, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Collection, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	// Wait for the subscription confirmation so no notice published after
	// Subscribe returns is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Collection, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c, err := ParseCollection(msg.Payload)
				if err != nil {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// LocalBus is an in-process Bus. A subscriber that falls behind never
// loses a notice: pending notices are coalesced per collection and
// delivered once the subscriber catches up.
type LocalBus struct {
	mu   sync.Mutex
	subs map[*localSub]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[*localSub]struct{})}
}

// localSub holds the collections changed since the subscriber last read,
// in first-notice order, with a 1-slot wake channel.
type localSub struct {
	mu      sync.Mutex
	pending []Collection
	marked  map[Collection]struct{}
	wake    chan struct{}
}

func (s *localSub) mark(c Collection) {
	s.mu.Lock()
	if _, ok := s.marked[c]; !ok {
		s.marked[c] = struct{}{}
		s.pending = append(s.pending, c)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *localSub) take() []Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	clear(s.marked)
	return out
}

func (b *LocalBus) Publish(_ context.Context, c Collection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		sub.mark(c)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context) (<-chan Collection, error) {
	sub := &localSub{
		marked: make(map[Collection]struct{}),
		wake:   make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	out := make(chan Collection)
	go func() {
		defer close(out)
		defer func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}
			for _, c := range sub.take() {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
