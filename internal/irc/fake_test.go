package irc

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeTransport is an in-memory Transport. Bytes pushed with feed are
// returned by Receive; sends are recorded line by line.
type fakeTransport struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once
	closes atomic.Int32

	mu     sync.Mutex
	sent   []string
	sentAt []time.Time
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) feed(s string) { f.in <- []byte(s) }

// hangup simulates the server closing the connection.
func (f *fakeTransport) hangup() { close(f.in) }

func (f *fakeTransport) Receive(max int) ([]byte, error) {
	select {
	case b, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	case <-f.closed:
		return nil, net.ErrClosed
	}
}

func (f *fakeTransport) Send(p []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range strings.SplitAfter(string(p), "\r\n") {
		if line == "" {
			continue
		}
		f.sent = append(f.sent, line)
		f.sentAt = append(f.sentAt, now)
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.closes.Add(1)
	f.once.Do(func() { close(f.closed) })
	return nil
}

// lines returns the sent lines with their CRLF removed.
func (f *fakeTransport) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, l := range f.sent {
		out[i] = strings.TrimSuffix(l, "\r\n")
	}
	return out
}

func (f *fakeTransport) raw() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// sentTimes returns the send time of every line that starts with prefix.
func (f *fakeTransport) sentTimes(prefix string) []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for i, l := range f.sent {
		if strings.HasPrefix(l, prefix) {
			out = append(out, f.sentAt[i])
		}
	}
	return out
}

type fakeDialer struct {
	t     *fakeTransport
	err   error
	host  string
	port  int
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, host string, port int) (Transport, error) {
	d.dials++
	d.host, d.port = host, port
	if d.err != nil {
		return nil, d.err
	}
	return d.t, nil
}

// testOptions returns options with fast timings.
func testOptions() Options {
	return Options{
		Server:       "irc.example.net",
		Port:         6667,
		Nick:         "bot",
		RealName:     "Greeter Bot",
		Channels:     []string{"#chan"},
		Template:     "Hello {user}!",
		Interval:     time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		JoinSpacing:  time.Millisecond,
		AuthPause:    time.Millisecond,
	}
}

// queued pops every pending message of q.
func queued(q *Queue) []Message {
	var out []Message
	for {
		m, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

func queuedLines(q *Queue) []string {
	var out []string
	for _, m := range queued(q) {
		out = append(out, m.Line)
	}
	return out
}
