package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aoneahsan/strata-storage/lib/logger"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/storage/util"
)

// Broadcaster fans change events out to subscribers. Implementations
// decide the transport: the local broadcaster stays in-process, remote
// implementations may bridge processes or hosts.
type Broadcaster interface {
	// Broadcast enqueues an event for delivery. It must not block on
	// slow subscribers.
	Broadcast(event storage.ChangeEvent)

	// Subscribe registers a callback for future events and returns a
	// function that cancels the subscription. Callbacks run on the
	// broadcaster's delivery goroutine and should return quickly.
	Subscribe(fn func(storage.ChangeEvent)) func()

	// Source returns the unique identity of this broadcaster instance.
	// Events carrying this source are the instance's own and are
	// suppressed on delivery.
	Source() string

	// Close stops delivery. Events already queued are still delivered.
	Close()
}

// --------------------------------------------------------------------------
// Local implementation
// --------------------------------------------------------------------------

// Local is an in-process Broadcaster. Producers push onto a lock-free
// queue so Broadcast never blocks store operations; a single consumer
// goroutine fans events out to subscribers in queue order.
type Local struct {
	source string
	queue  *util.LockFreeMPSC[storage.ChangeEvent]
	log    *logger.Logger

	mu     sync.RWMutex
	subs   map[uint64]func(storage.ChangeEvent)
	nextID atomic.Uint64

	done sync.WaitGroup
}

// NewLocal creates a started local broadcaster with a fresh source ID.
func NewLocal() *Local {
	b := &Local{
		source: uuid.NewString(),
		queue:  util.NewLockFreeMPSC[storage.ChangeEvent](),
		log:    logger.New("broadcast"),
		subs:   make(map[uint64]func(storage.ChangeEvent)),
	}

	b.done.Add(1)
	go b.deliver()

	return b
}

// Source returns the instance identity stamped onto outgoing events.
func (b *Local) Source() string {
	return b.source
}

// Broadcast enqueues an event. Events without a source are stamped with
// this instance's identity; events carrying a foreign source pass
// through unchanged so bridged events keep their origin.
//
// Thread-safety: safe for concurrent use.
func (b *Local) Broadcast(event storage.ChangeEvent) {
	if event.Source == "" {
		event.Source = b.source
	}
	if !b.queue.Push(&event) {
		b.log.Debugf("dropped %s event for %q: broadcaster closed", event.Type, event.Key)
	}
}

// Subscribe registers a callback and returns its cancel function. The
// cancel function is idempotent.
func (b *Local) Subscribe(fn func(storage.ChangeEvent)) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Close stops the broadcaster. Queued events are delivered before the
// delivery goroutine exits.
func (b *Local) Close() {
	b.queue.Close()
	b.done.Wait()
}

// deliver drains the queue and invokes every subscriber per event.
func (b *Local) deliver() {
	defer b.done.Done()

	for event := range b.queue.Recv() {
		b.mu.RLock()
		callbacks := make([]func(storage.ChangeEvent), 0, len(b.subs))
		for _, fn := range b.subs {
			callbacks = append(callbacks, fn)
		}
		b.mu.RUnlock()

		for _, fn := range callbacks {
			fn(*event)
		}
	}
}
