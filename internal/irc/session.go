package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigbastik/SalutoBot/internal/config"
)

var (
	ErrNotConnected     = errors.New("session is not connected")
	ErrAlreadyConnected = errors.New("session is already connected")
)

// Options configures a Session. Zero durations take the defaults listed
// on each field.
type Options struct {
	Server   string
	Port     int
	Nick     string
	Username string // default: Nick
	RealName string // default: Nick
	Channels []string

	// Template is the greeting text; Placeholder is replaced by the nick.
	Template string

	Auth       bool
	AuthSecret string

	Interval     time.Duration // minimum gap between queued sends; zero disables throttling
	PollInterval time.Duration // default 500ms
	JoinSpacing  time.Duration // default 1s
	AuthPause    time.Duration // default 2s
	ReadSize     int           // default 2048
}

// OptionsFromConfig maps the bot configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Server:     cfg.Server,
		Port:       cfg.Port,
		Nick:       cfg.Nick,
		Username:   cfg.Username,
		RealName:   cfg.IRCName,
		Channels:   append([]string(nil), cfg.Channels...),
		Template:   cfg.PMTemplate,
		Auth:       cfg.UseNickServAuth,
		AuthSecret: cfg.NickServPassword,
		Interval:   cfg.Interval(),
	}
}

func (o *Options) setDefaults() {
	if o.Username == "" {
		o.Username = o.Nick
	}
	if o.RealName == "" {
		o.RealName = o.Nick
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.JoinSpacing <= 0 {
		o.JoinSpacing = time.Second
	}
	if o.AuthPause <= 0 {
		o.AuthPause = 2 * time.Second
	}
	if o.ReadSize <= 0 {
		o.ReadSize = 2048
	}
}

// Session is one connection to an IRC server: registration, the read and
// dispatch loop, and the throttled send loop.
type Session struct {
	opts    Options
	dialer  Dialer
	sink    Sink
	queue   *Queue
	tracker *Tracker

	running atomic.Bool

	mu        sync.Mutex
	transport Transport
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
	err       error

	// OnGreet, if set, is called from the send loop after the greeting for
	// nick has been written to the server.
	OnGreet func(nick string)
}

// NewSession creates a session. A nil sink discards events.
func NewSession(opts Options, dialer Dialer, sink Sink) *Session {
	opts.setDefaults()
	if sink == nil {
		sink = discardSink{}
	}
	q := NewQueue(opts.Interval, opts.PollInterval)
	s := &Session{
		opts:    opts,
		dialer:  dialer,
		sink:    sink,
		queue:   q,
		tracker: NewTracker(opts.Nick, opts.Template, q),
		done:    make(chan struct{}),
	}
	s.tracker.OnSent = s.greeted
	return s
}

func (s *Session) greeted(nick string) {
	s.emit(EventGreeted, nick)
	if s.OnGreet != nil {
		s.OnGreet(nick)
	}
}

// Connect dials the server, registers synchronously and starts the read
// and send loops. Cancelling ctx later has the same effect as Stop, minus
// the wait.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		return ErrAlreadyConnected
	}

	s.emit(EventInfo, fmt.Sprintf("Connecting to %s:%d...", s.opts.Server, s.opts.Port))
	t, err := s.dialer.Dial(ctx, s.opts.Server, s.opts.Port)
	if err != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", s.opts.Server, s.opts.Port, err)
	}
	s.transport = t
	s.running.Store(true)

	for _, line := range []string{
		"NICK " + s.opts.Nick,
		fmt.Sprintf("USER %s 0 * :%s", s.opts.Username, s.opts.RealName),
	} {
		if err := s.sendRaw(line); err != nil {
			s.running.Store(false)
			s.closeTransport()
			close(s.done)
			return fmt.Errorf("registration failed: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	context.AfterFunc(loopCtx, func() { s.closeTransport() })

	var g errgroup.Group
	g.Go(func() error { return s.readLoop(loopCtx) })
	g.Go(func() error {
		if err := s.queue.Drain(loopCtx, s.sendRaw); err != nil && s.running.Load() {
			return err
		}
		return nil
	})

	go func() {
		s.err = g.Wait()
		s.running.Store(false)
		close(s.done)
	}()
	return nil
}

// Stop flips the running flag, closes the transport and waits for both
// loops to end. Queued messages are discarded. Calling Stop again is a
// no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.transport == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.running.Store(false)
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := s.closeTransport()
	<-s.done

	s.emit(EventInfo, fmt.Sprintf("Disconnected: %d users seen, discarded %d queued messages",
		s.tracker.Contacted(), s.queue.Len()))
	return err
}

// Wait blocks until both loops have ended and returns the first loop
// error, if any.
func (s *Session) Wait() error {
	s.mu.Lock()
	connected := s.transport != nil
	s.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	<-s.done
	return s.err
}

// Done is closed once both loops have ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the session is connected and not stopped.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Contacted returns the number of users greeted so far.
func (s *Session) Contacted() int {
	return s.tracker.Contacted()
}

func (s *Session) closeTransport() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}

// sendRaw writes one line to the wire immediately.
func (s *Session) sendRaw(line string) error {
	if !s.running.Load() {
		return ErrNotConnected
	}
	s.emit(EventSend, line)
	if err := s.transport.Send([]byte(line + "\r\n")); err != nil {
		s.emitErr("send failed", err)
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *Session) enqueue(line string) {
	s.queue.Push(Message{Line: line})
}

func (s *Session) readLoop(ctx context.Context) error {
	var framer Framer

	for s.running.Load() && ctx.Err() == nil {
		data, err := s.transport.Receive(s.opts.ReadSize)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || !s.running.Load() {
				s.emit(EventInfo, "Connection closed")
				return nil
			}
			s.emitErr("read failed", err)
			return fmt.Errorf("read: %w", err)
		}
		if len(data) == 0 {
			s.emit(EventInfo, "Connection closed")
			return nil
		}

		framer.Write(data)
		for line, ok := framer.Next(); ok; line, ok = framer.Next() {
			if !s.running.Load() {
				return nil
			}
			s.handleLine(line)
		}
	}
	return nil
}

func (s *Session) emit(kind EventKind, text string) {
	s.sink.Emit(Event{Kind: kind, Text: text})
}

func (s *Session) emitErr(text string, err error) {
	s.sink.Emit(Event{Kind: EventError, Text: text, Err: err})
}
