package session

import "time"

// EventKind names a session lifecycle event.
type EventKind string

const (
	KindLogin       EventKind = "login"
	KindLoginFailed EventKind = "login_failed"
	KindLogout      EventKind = "logout"
	KindExpired     EventKind = "expired"
	KindRestored    EventKind = "restored"
	KindRefreshed   EventKind = "refreshed"
)

// Event is delivered to listeners after the state change it describes.
// Email is the normalised identifier for KindLoginFailed.
type Event struct {
	Kind   EventKind
	UserID string
	Email  string
	At     time.Time
}

// Listener observes session events. Listeners run on the goroutine that
// caused the event, after the Manager's lock is released.
type Listener interface {
	OnSessionEvent(e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnSessionEvent(e Event) { f(e) }
