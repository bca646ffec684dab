package session

import (
	"fmt"
	"strings"
	"sync"
)

// EventType is a kind of user interaction.
type EventType string

const (
	EventClick      EventType = "click"
	EventKeypress   EventType = "keypress"
	EventMousemove  EventType = "mousemove"
	EventTouchstart EventType = "touchstart"
)

func DefaultTrackedEvents() []EventType {
	return []EventType{EventClick, EventKeypress, EventMousemove, EventTouchstart}
}

func (t EventType) Valid() bool {
	switch t {
	case EventClick, EventKeypress, EventMousemove, EventTouchstart:
		return true
	}
	return false
}

// ParseEventTypes parses a comma separated list such as "click,keypress".
func ParseEventTypes(s string) ([]EventType, error) {
	var out []EventType
	seen := make(map[EventType]bool)
	for _, part := range strings.Split(s, ",") {
		t := EventType(strings.ToLower(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown event type %q", ErrConfig, part)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty event type list", ErrConfig)
	}
	return out, nil
}

// ActivitySource delivers user interaction events. Subscribe registers fn
// for the given types and returns a function that removes it.
type ActivitySource interface {
	Subscribe(types []EventType, fn func(EventType)) (unsubscribe func())
}

// EventBus is an in-process ActivitySource. The shell dispatches a keypress
// for every line the user enters.
type EventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[EventType]map[int]func(EventType)
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[EventType]map[int]func(EventType))}
}

func (b *EventBus) Subscribe(types []EventType, fn func(EventType)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	for _, t := range types {
		if b.subs[t] == nil {
			b.subs[t] = make(map[int]func(EventType))
		}
		b.subs[t][id] = fn
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, t := range types {
				delete(b.subs[t], id)
			}
		})
	}
}

// Dispatch delivers t to its subscribers. Handlers run on the caller's
// goroutine without the bus lock held.
func (b *EventBus) Dispatch(t EventType) {
	b.mu.Lock()
	fns := make([]func(EventType), 0, len(b.subs[t]))
	for _, fn := range b.subs[t] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}

// Listeners returns the number of subscribers for t.
func (b *EventBus) Listeners(t EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[t])
}

// tracker owns the manager's single activity subscription.
type tracker struct {
	source  ActivitySource
	types   []EventType
	handler func(EventType)
	unsub   func()
}

func (t *tracker) attach() {
	if t.unsub != nil {
		return
	}
	t.unsub = t.source.Subscribe(t.types, t.handler)
}

func (t *tracker) detach() {
	if t.unsub == nil {
		return
	}
	t.unsub()
	t.unsub = nil
}

func (t *tracker) attached() bool {
	return t.unsub != nil
}
