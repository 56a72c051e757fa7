package irc

import (
	"log"
	"strings"
)

// EventKind classifies an Event.
type EventKind int

const (
	EventInfo EventKind = iota
	EventRecv
	EventSend
	EventGreeted
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventInfo:
		return "INFO"
	case EventRecv:
		return "RECV"
	case EventSend:
		return "SEND"
	case EventGreeted:
		return "GREET"
	case EventError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Event is something the session reports to its Sink.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Sink receives session events. Emit is called from the session's
// goroutines and must not block for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// LogSink writes events through a standard logger, one line per event.
type LogSink struct {
	Logger *log.Logger

	// Verbose includes every line received from the server.
	Verbose bool
}

// Emit logs e.
func (s *LogSink) Emit(e Event) {
	if e.Kind == EventRecv && !s.Verbose {
		return
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	text := e.Text
	if e.Kind == EventSend {
		text = redact(text)
	}
	if e.Err != nil {
		if text == "" {
			text = e.Err.Error()
		} else {
			text += ": " + e.Err.Error()
		}
	}
	logger.Printf("[%s] %s", e.Kind, text)
}

const identifyPrefix = "PRIVMSG NickServ :IDENTIFY "

// redact masks the password in a NickServ IDENTIFY line.
func redact(line string) string {
	if strings.HasPrefix(line, identifyPrefix) {
		return identifyPrefix + "****"
	}
	return line
}
