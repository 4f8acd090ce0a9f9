package service

import "github.com/aussiebroadwan/biblenation/internal/account/events"

// outbox collects events raised inside a transaction so they are only
// published once the transaction commits.
type outbox struct {
	pending []events.Event
}

func (o *outbox) add(e events.Event) { o.pending = append(o.pending, e) }

func (o *outbox) flush(p events.Publisher) {
	if p == nil {
		return
	}
	for _, e := range o.pending {
		p.Publish(e)
	}
	o.pending = nil
}
