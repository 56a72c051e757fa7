package irc

import (
	"fmt"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
)

/*
Handler Summary:

Keepalive:
- PING (onPing): replies PONG <token> through the send queue

Registration:
- 001 (onWelcome): RPL_WELCOME - registration accepted
  - Identifies to NickServ if configured, then holds the first JOIN
  - JOINs every configured channel, in order, spaced by JoinSpacing

Channel Events:
- JOIN (onSelfJoin): only our own joins
  - Requests NAMES for the channel

Membership:
- 353 (onNames): RPL_NAMREPLY, member list in the trailing parameter
  - Strips @/+ prefixes and hands each nick to the Tracker
  - OnGreet fires from the send loop once the PRIVMSG is written

Every other line is ignored.
*/

const (
	rplWelcome  = "001"
	rplNamReply = "353"
)

// handleLine dispatches one line received from the server.
func (s *Session) handleLine(line string) {
	s.emit(EventRecv, line)

	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return
	}

	switch {
	case msg.Command == "PING":
		s.onPing(msg)
	case msg.Command == rplWelcome:
		s.onWelcome()
	case msg.Command == "JOIN" && msg.Nick() == s.opts.Nick:
		s.onSelfJoin(msg)
	case msg.Command == rplNamReply:
		s.onNames(line, msg)
	}
}

func (s *Session) onPing(msg ircmsg.Message) {
	// PING :<token>
	if len(msg.Params) < 1 {
		return
	}
	token := strings.Fields(msg.Params[0])
	if len(token) == 0 {
		return
	}
	s.enqueue("PONG " + token[0])
}

func (s *Session) onWelcome() {
	s.emit(EventInfo, fmt.Sprintf("Registered as %s", s.opts.Nick))

	var hold time.Duration
	if s.opts.Auth && s.opts.AuthSecret != "" {
		s.enqueue(identifyPrefix + s.opts.AuthSecret)
		hold = s.opts.AuthPause
	}

	for i, ch := range s.opts.Channels {
		spacing := s.opts.JoinSpacing
		if i == 0 {
			spacing = hold
		}
		s.queue.Push(Message{Line: "JOIN " + ch, Spacing: spacing})
	}
}

func (s *Session) onSelfJoin(msg ircmsg.Message) {
	// :<nick>!<user>@<host> JOIN :<channel>
	if len(msg.Params) < 1 {
		return
	}
	channel := strings.TrimSpace(strings.TrimPrefix(msg.Params[0], ":"))
	if channel == "" {
		return
	}
	s.emit(EventInfo, fmt.Sprintf("Joined %s", channel))
	s.enqueue("NAMES " + channel)
}

func (s *Session) onNames(line string, msg ircmsg.Message) {
	// 353 <me> <symbol> <channel> :<[@+]nick> ...
	// The member list must be the trailing parameter.
	if len(msg.Params) < 3 || !hasTrailing(line) {
		return
	}
	for _, name := range strings.Fields(msg.Params[len(msg.Params)-1]) {
		s.tracker.Consider(strings.TrimLeft(name, "@+"))
	}
}

// hasTrailing reports whether line carries a ":"-introduced trailing
// parameter after its command. Tags and source are skipped first since
// both can contain " :".
func hasTrailing(line string) bool {
	rest := line
	for _, lead := range []string{"@", ":"} {
		if strings.HasPrefix(rest, lead) {
			i := strings.IndexByte(rest, ' ')
			if i < 0 {
				return false
			}
			rest = strings.TrimLeft(rest[i:], " ")
		}
	}
	return strings.Contains(rest, " :")
}
