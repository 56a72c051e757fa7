package irc

import (
	"context"
	"sync"
	"time"
)

// Message is one outbound protocol line, without the trailing CRLF.
type Message struct {
	Line string

	// Spacing is the minimum time since the previous transmission before
	// this line may be sent. The queue interval still applies if larger.
	Spacing time.Duration

	// OnSent, if set, is called by Drain after the line has been written.
	OnSent func()
}

// Queue is an unbounded FIFO of outbound lines drained at a throttled rate.
// Push is safe from any goroutine; Drain must have a single caller.
type Queue struct {
	interval time.Duration
	poll     time.Duration

	mu     sync.Mutex
	items  []Message
	notify chan struct{}
}

// NewQueue creates a queue that sends at most one line per interval and
// rechecks an empty queue every poll.
func NewQueue(interval, poll time.Duration) *Queue {
	return &Queue{
		interval: interval,
		poll:     poll,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends a message to the tail of the queue.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Message{}, false
	}
	m := q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	return m, true
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain sends queued lines one at a time until ctx is done or send fails.
// Consecutive sends are at least the queue interval apart (or the
// message's Spacing, whichever is larger). Messages still queued when ctx
// ends are left unsent.
func (q *Queue) Drain(ctx context.Context, send func(line string) error) error {
	var last time.Time

	for {
		if ctx.Err() != nil {
			return nil
		}

		m, ok := q.Pop()
		if !ok {
			idle := time.NewTimer(q.poll)
			select {
			case <-ctx.Done():
				idle.Stop()
				return nil
			case <-q.notify:
				idle.Stop()
			case <-idle.C:
			}
			continue
		}

		gap := q.interval
		if m.Spacing > gap {
			gap = m.Spacing
		}
		if !last.IsZero() {
			if wait := time.Until(last.Add(gap)); wait > 0 {
				permit := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					permit.Stop()
					return nil
				case <-permit.C:
				}
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := send(m.Line); err != nil {
			return err
		}
		last = time.Now()
		if m.OnSent != nil {
			m.OnSent()
		}
	}
}
