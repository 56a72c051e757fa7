package irc

import (
	"strings"
	"sync"

	"github.com/bigbastik/SalutoBot/internal/config"
)

// Placeholder is the slot in a greeting template replaced by the nickname.
const Placeholder = config.Placeholder

// Tracker owns the set of users already greeted and queues the greeting
// for each user seen for the first time.
type Tracker struct {
	nick     string
	template string
	queue    *Queue

	mu        sync.Mutex
	contacted map[string]struct{}

	// OnSent, if set, is called from the send loop once a user's greeting
	// has been written. Greetings dropped on shutdown never reach it.
	OnSent func(user string)
}

// NewTracker creates a tracker for a bot named nick.
func NewTracker(nick, template string, queue *Queue) *Tracker {
	return &Tracker{
		nick:      nick,
		template:  template,
		queue:     queue,
		contacted: make(map[string]struct{}),
	}
}

// Consider queues a greeting for user unless it is the bot itself or has
// already been greeted. It reports whether a greeting was queued.
func (t *Tracker) Consider(user string) bool {
	if user == "" || user == t.nick {
		return false
	}

	t.mu.Lock()
	if _, seen := t.contacted[user]; seen {
		t.mu.Unlock()
		return false
	}
	t.contacted[user] = struct{}{}
	t.mu.Unlock()

	t.queue.Push(Message{
		Line: "PRIVMSG " + user + " :" + Render(t.template, user),
		OnSent: func() {
			if t.OnSent != nil {
				t.OnSent(user)
			}
		},
	})
	return true
}

// Has reports whether user has been greeted.
func (t *Tracker) Has(user string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.contacted[user]
	return ok
}

// Contacted returns how many users have been greeted.
func (t *Tracker) Contacted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.contacted)
}

// Render fills the template's placeholder with user.
func Render(template, user string) string {
	return strings.Replace(template, Placeholder, user, 1)
}
