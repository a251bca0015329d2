package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// subscription wraps a subscriber channel with drop accounting.
type subscription[T any] struct {
	ch       chan<- T
	inactive atomic.Bool
	dropped  atomic.Int64
}

func (s *subscription[T]) push(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	if err := SendNonBlock(s.ch, msg); err != nil {
		s.dropped.Add(1)
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster fans messages from a single input channel out to many
// subscriber channels. Sends are non-blocking: a full subscriber drops
// messages rather than stalling the producer.
//
// On context cancellation the input channel is closed and remaining
// messages are drained to subscribers before shutdown completes.
type Broadcaster[T any] struct {
	subs    []*subscription[T]
	input   chan T
	started atomic.Bool
	wg      sync.WaitGroup
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe registers a channel to receive broadcast messages.
// Must be called before Run. Not safe for concurrent use with Run.
func (b *Broadcaster[T]) Subscribe(ch chan<- T) {
	b.subs = append(b.subs, &subscription[T]{ch: ch})
}

// Run starts the broadcast loop and returns the input channel.
// The returned channel is owned by the Broadcaster and closed when ctx is
// cancelled. Returns an error if already started or nothing is subscribed.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if b.started.Load() {
		return nil, fmt.Errorf("broadcaster already started")
	}

	if len(b.subs) == 0 {
		return nil, fmt.Errorf("no subscribers available")
	}

	b.input = make(chan T, len(b.subs)*2)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range b.input {
			for _, sub := range b.subs {
				sub.push(msg)
			}
		}
	}()

	b.started.Store(true)

	go func() {
		<-ctx.Done()
		close(b.input)
		b.wg.Wait()
	}()

	return b.input, nil
}

// Wait blocks until the broadcast loop has drained after cancellation.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// Dropped reports how many messages each subscriber has missed.
func (b *Broadcaster[T]) Dropped() []int64 {
	counts := make([]int64, len(b.subs))
	for i, sub := range b.subs {
		counts[i] = sub.dropped.Load()
	}
	return counts
}
