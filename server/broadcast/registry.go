package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/cyclopcam/logs"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// Registry owns the set of live subscribers to detection results.
// Publish is fire-and-forget: there is no delivery confirmation, no replay
// for late subscribers, and a slow subscriber never blocks the publisher or
// its peers.

// SYNC-SUBSCRIBER-CHANNEL-SIZE
const SubscriberChannelSize = 64

type Subscriber struct {
	id uint64
	ch chan *detection.Result
}

// Results is the channel on which this subscriber receives publishes.
// The channel is closed when the subscriber is removed from the registry.
func (s *Subscriber) Results() <-chan *detection.Result {
	return s.ch
}

type Registry struct {
	log     logs.Log
	lock    sync.RWMutex
	subs    []*Subscriber
	nextID  atomic.Uint64
	dropped atomic.Uint64
}

func NewRegistry(log logs.Log) *Registry {
	return &Registry{
		log: log,
	}
}

// Subscribe registers a new subscriber, which becomes eligible to receive
// all publishes that happen after this call returns.
func (r *Registry) Subscribe() *Subscriber {
	sub := &Subscriber{
		id: r.nextID.Add(1),
		ch: make(chan *detection.Result, SubscriberChannelSize),
	}
	r.lock.Lock()
	r.subs = append(r.subs, sub)
	r.lock.Unlock()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
// Unsubscribing twice is harmless.
func (r *Registry) Unsubscribe(sub *Subscriber) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for i, s := range r.subs {
		if s == sub {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Publish delivers res to every current subscriber, in registration order.
// Publishes are serialized under the full lock, so there is a single
// broadcast sequence and every subscriber observes publishes in the same
// relative order. Sends go to buffered channels and never block: if a
// subscriber's channel is nearly full, we drop the message for that
// subscriber rather than stall everyone else.
func (r *Registry) Publish(res *detection.Result) {
	r.lock.Lock()
	for _, sub := range r.subs {
		// SYNC-SUBSCRIBER-CHANNEL-SIZE
		if len(sub.ch) >= cap(sub.ch)*9/10 {
			// A subscriber that can't keep up loses messages. That's the contract.
			r.dropped.Add(1)
			r.log.Warnf("Subscriber %v is falling behind. Dropping results.", sub.id)
		} else {
			sub.ch <- res
		}
	}
	r.lock.Unlock()
}

// Close removes all subscribers and closes their channels.
func (r *Registry) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, sub := range r.subs {
		close(sub.ch)
	}
	r.subs = nil
}

// NumSubscribers returns the current size of the subscriber set.
func (r *Registry) NumSubscribers() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.subs)
}

// NumDropped returns the total number of per-subscriber deliveries that were
// dropped because the subscriber was too slow.
func (r *Registry) NumDropped() uint64 {
	return r.dropped.Load()
}
