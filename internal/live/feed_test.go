package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) add(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func TestFeed_SubscribeDeliversInitialSnapshot(t *testing.T) {
	feed := NewFeed(NewLocalBus(), zap.NewNop())
	feed.Register(Requests, func(context.Context) (any, error) {
		return []string{"a", "b"}, nil
	})

	var rec recorder
	stop, err := feed.Subscribe(context.Background(), Requests, rec.add)
	require.NoError(t, err)
	defer stop()

	require.Equal(t, 1, rec.len())
	assert.Equal(t, Requests, rec.last().Collection)
	assert.Equal(t, []string{"a", "b"}, rec.last().Data)
}

func TestFeed_SubscribeUnknownCollection(t *testing.T) {
	feed := NewFeed(NewLocalBus(), zap.NewNop())
	_, err := feed.Subscribe(context.Background(), Archive, func(Snapshot) {})
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestFeed_SubscribeLoaderError(t *testing.T) {
	feed := NewFeed(NewLocalBus(), zap.NewNop())
	feed.Register(History, func(context.Context) (any, error) {
		return nil, errors.New("db down")
	})
	_, err := feed.Subscribe(context.Background(), History, func(Snapshot) {})
	assert.Error(t, err)
}

func TestFeed_RunRefreshesSubscribersAndDerived(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var version atomic.Int64
	feed := NewFeed(NewLocalBus(), zap.NewNop())
	feed.Register(Requests, func(context.Context) (any, error) { return version.Load(), nil })
	feed.Register(TopRequests, func(context.Context) (any, error) { return -version.Load(), nil })
	feed.Derive(Requests, TopRequests)

	var all, top recorder
	stopAll, err := feed.Subscribe(ctx, Requests, all.add)
	require.NoError(t, err)
	defer stopAll()
	stopTop, err := feed.Subscribe(ctx, TopRequests, top.add)
	require.NoError(t, err)
	defer stopTop()

	go func() { _ = feed.Run(ctx) }()

	version.Store(7)
	require.Eventually(t, func() bool {
		feed.Notify(ctx, Requests)
		return all.len() >= 2 && top.len() >= 2
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, int64(7), all.last().Data)
	assert.Equal(t, int64(-7), top.last().Data)
}

func TestFeed_StopEndsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(NewLocalBus(), zap.NewNop())
	feed.Register(Blacklist, func(context.Context) (any, error) { return nil, nil })

	var stopped, active recorder
	stop, err := feed.Subscribe(ctx, Blacklist, stopped.add)
	require.NoError(t, err)
	stop()
	stop()

	stopActive, err := feed.Subscribe(ctx, Blacklist, active.add)
	require.NoError(t, err)
	defer stopActive()

	go func() { _ = feed.Run(ctx) }()

	require.Eventually(t, func() bool {
		feed.Notify(ctx, Blacklist)
		return active.len() >= 2
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, stopped.len())
}

func TestLocalBus_CoalescesWhileSubscriberIsBusy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLocalBus()
	notices, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, bus.Publish(ctx, Requests))
	}
	require.NoError(t, bus.Publish(ctx, Archive))

	got := map[Collection]int{}
	for got[Archive] == 0 {
		select {
		case c := <-notices:
			got[c]++
		case <-time.After(time.Second):
			t.Fatalf("archive notice lost, got %v", got)
		}
	}
	assert.LessOrEqual(t, got[Requests], 2)
}

func TestFeed_SlowReaderStillSeesLatestState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		busy    atomic.Bool
		version atomic.Int64
	)
	release := make(chan struct{})
	feed := NewFeed(NewLocalBus(), zap.NewNop())
	feed.Register(Requests, func(context.Context) (any, error) {
		if busy.Load() {
			<-release
		}
		return nil, nil
	})
	feed.Register(Archive, func(context.Context) (any, error) { return version.Load(), nil })

	var reqs, archive recorder
	stopReqs, err := feed.Subscribe(ctx, Requests, reqs.add)
	require.NoError(t, err)
	defer stopReqs()
	stopArchive, err := feed.Subscribe(ctx, Archive, archive.add)
	require.NoError(t, err)
	defer stopArchive()

	go func() { _ = feed.Run(ctx) }()
	require.Eventually(t, func() bool {
		feed.Notify(ctx, Archive)
		return archive.len() >= 2
	}, 2*time.Second, 20*time.Millisecond)

	// the feed goroutine is stuck reloading requests while notices pile up
	busy.Store(true)
	for i := 0; i < 200; i++ {
		feed.Notify(ctx, Requests)
	}
	version.Store(1)
	feed.Notify(ctx, Archive)
	close(release)

	require.Eventually(t, func() bool {
		return archive.last().Data == int64(1)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewRedisBus(rdb, "")
	notices, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, ForbiddenWords))
	// garbage on the channel is skipped
	require.NoError(t, rdb.Publish(ctx, DefaultChannel, "nonsense").Err())
	require.NoError(t, bus.Publish(ctx, BannedDevices))

	select {
	case c := <-notices:
		assert.Equal(t, ForbiddenWords, c)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notice")
	}
	select {
	case c := <-notices:
		assert.Equal(t, BannedDevices, c)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notice")
	}
}

func TestRedisBus_PublishError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mr.SetError("redis connection failed")
	err = NewRedisBus(rdb, "").Publish(context.Background(), Requests)
	assert.Error(t, err)
}

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection("top_requests")
	require.NoError(t, err)
	assert.Equal(t, TopRequests, c)

	_, err = ParseCollection("users")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
