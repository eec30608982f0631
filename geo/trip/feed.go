package trip

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

// feed fans values out to subscribed channels without ever blocking the sender.
// A value goes straight into a subscriber's channel when there is room.
// Otherwise it waits in that subscriber's backlog, where it replaces any older
// value in the same slot, and a relay goroutine hands the backlog over in order.
type feed[T any] struct {
	sameSlot func(a, b T) bool

	mu   sync.Mutex
	subs map[*feedSub[T]]struct{}
}

func newFeed[T any](sameSlot func(a, b T) bool) *feed[T] {
	return &feed[T]{sameSlot: sameSlot, subs: make(map[*feedSub[T]]struct{})}
}

// sameKey keeps the latest update per output.
func sameKey(a, b Update) bool { return a.Key == b.Key }

// latestOnly keeps one value.
func latestOnly[T any](_, _ T) bool { return true }

// Subscribe registers ch. The subscription's relay goroutine exits on Unsubscribe,
// dropping whatever backlog the channel never made room for.
func (f *feed[T]) Subscribe(ch chan<- T) event.Subscription {
	sub := &feedSub[T]{ch: ch, sameSlot: f.sameSlot, wake: make(chan struct{}, 1)}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer f.remove(sub)
		sub.relay(quit)
		return nil
	})
}

func (f *feed[T]) remove(sub *feedSub[T]) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

// Send delivers v to every subscriber. It never blocks on a subscriber's channel.
func (f *feed[T]) Send(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.deliver(v)
	}
}

type feedSub[T any] struct {
	ch       chan<- T
	sameSlot func(a, b T) bool
	wake     chan struct{}

	mu       sync.Mutex
	backlog  []T
	inflight bool
}

func (s *feedSub[T]) deliver(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.backlog) == 0 && !s.inflight {
		select {
		case s.ch <- v:
			return
		default:
		}
	}
	for i, old := range s.backlog {
		if s.sameSlot(old, v) {
			s.backlog = append(s.backlog[:i], s.backlog[i+1:]...)
			break
		}
	}
	s.backlog = append(s.backlog, v)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *feedSub[T]) relay(quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.backlog) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.backlog[0]
			s.backlog = s.backlog[1:]
			s.inflight = true
			s.mu.Unlock()

			select {
			case s.ch <- next:
			case <-quit:
				return
			}

			s.mu.Lock()
			s.inflight = false
			s.mu.Unlock()
		}
	}
}
