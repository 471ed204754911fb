package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loader reads the complete current contents of one collection.
type Loader func(ctx context.Context) (any, error)

// Feed turns change notices into fresh snapshots for subscribers.
//
// Callbacks run on the feed's goroutine while the collection is locked and
// must not block; hand the snapshot to a buffered channel instead.
type Feed struct {
	bus Bus
	log *zap.Logger

	loaders map[Collection]Loader
	derived map[Collection][]Collection
	locks   map[Collection]*sync.Mutex

	mu     sync.RWMutex
	subs   map[Collection]map[uint64]func(Snapshot)
	nextID uint64
}

func NewFeed(bus Bus, log *zap.Logger) *Feed {
	return &Feed{
		bus:     bus,
		log:     log,
		loaders: make(map[Collection]Loader),
		derived: make(map[Collection][]Collection),
		locks:   make(map[Collection]*sync.Mutex),
		subs:    make(map[Collection]map[uint64]func(Snapshot)),
	}
}

// Register installs the loader for c. Must be called before Run.
func (f *Feed) Register(c Collection, l Loader) {
	f.loaders[c] = l
	f.locks[c] = &sync.Mutex{}
}

// Derive marks dst as computed from src: a change of src refreshes dst too.
func (f *Feed) Derive(src, dst Collection) {
	f.derived[src] = append(f.derived[src], dst)
}

// Notify publishes change notices. Publish failures are logged; observers
// catch up on the next successful notice.
func (f *Feed) Notify(ctx context.Context, collections ...Collection) {
	for _, c := range collections {
		if err := f.bus.Publish(ctx, c); err != nil {
			f.log.Warn("publish change", zap.String("collection", string(c)), zap.Error(err))
		}
	}
}

// Subscribe delivers the current snapshot of c to fn right away and again
// after every change. The returned func stops delivery.
func (f *Feed) Subscribe(ctx context.Context, c Collection, fn func(Snapshot)) (func(), error) {
	load, ok := f.loaders[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	lock := f.locks[c]
	lock.Lock()
	defer lock.Unlock()

	data, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c, err)
	}
	fn(Snapshot{Collection: c, Data: data, At: time.Now()})

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[c] == nil {
		f.subs[c] = make(map[uint64]func(Snapshot))
	}
	f.subs[c][id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[c], id)
			f.mu.Unlock()
		})
	}, nil
}

// Run consumes change notices until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	notices, err := f.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	for c := range notices {
		f.refresh(ctx, c)
		for _, d := range f.derived[c] {
			f.refresh(ctx, d)
		}
	}
	return ctx.Err()
}

func (f *Feed) refresh(ctx context.Context, c Collection) {
	load, ok := f.loaders[c]
	if !ok {
		return
	}
	lock := f.locks[c]
	lock.Lock()
	defer lock.Unlock()

	f.mu.RLock()
	fns := make([]func(Snapshot), 0, len(f.subs[c]))
	for _, fn := range f.subs[c] {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()
	if len(fns) == 0 {
		return
	}

	data, err := load(ctx)
	if err != nil {
		f.log.Warn("reload collection", zap.String("collection", string(c)), zap.Error(err))
		return
	}
	snap := Snapshot{Collection: c, Data: data, At: time.Now()}
	for _, fn := range fns {
		fn(snap)
	}
}
