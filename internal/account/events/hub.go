// Package events fans out account and notification changes to live views
// (server-sent events) and, optionally, to an AMQP exchange.
package events

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/pkg/idx"
)

type Kind string

const (
	KindNotificationAdded   Kind = "notification.added"
	KindNotificationRead    Kind = "notification.read"
	KindNotificationDeleted Kind = "notification.deleted"
	KindNotificationsClear  Kind = "notifications.cleared"
	KindAccountChanged      Kind = "account.changed"
	KindEntitlementChanged  Kind = "entitlement.changed"

	// KindStreamReady opens every event stream and carries the unread count.
	KindStreamReady Kind = "stream.ready"
)

// AllAudiences subscribes to every event regardless of audience.
const AllAudiences = "*"

// Event is one change notification. Audience is domain.Audience.String()
// of the queue or account it concerns.
type Event struct {
	ID           string               `json:"id"`
	Kind         Kind                 `json:"kind"`
	Audience     string               `json:"audience"`
	At           time.Time            `json:"at"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Unread       *int                 `json:"unread,omitempty"`
	Data         map[string]any       `json:"data,omitempty"`
}

// New stamps an event with an id and the current time.
func New(kind Kind, audience domain.Audience) Event {
	return Event{
		ID:       idx.New().String(),
		Kind:     kind,
		Audience: audience.String(),
		At:       time.Now().UTC(),
	}
}

// Publisher accepts events. Publish never blocks.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

type subscriber struct {
	audience string
	ch       chan Event
}

// Hub is an in-process observer registry. Slow subscribers lose events
// rather than stall publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
	closed bool

	dropped func(Event)
}

// NewHub returns a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[*subscriber]struct{}), buffer: buffer}
}

// OnDrop registers a callback invoked when a subscriber misses an event.
func (h *Hub) OnDrop(fn func(Event)) {
	h.mu.Lock()
	h.dropped = fn
	h.mu.Unlock()
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for s := range h.subs {
		if s.audience != AllAudiences && s.audience != e.Audience {
			continue
		}
		select {
		case s.ch <- e:
		default:
			if h.dropped != nil {
				h.dropped(e)
			}
		}
	}
}

// Subscribe returns a channel of events for audience (or AllAudiences) and
// a cancel func. The channel is closed by cancel or Close.
func (h *Hub) Subscribe(audience string) (<-chan Event, func()) {
	s := &subscriber{audience: audience, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.ch)
			}
		})
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
