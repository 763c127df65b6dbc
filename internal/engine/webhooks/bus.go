package webhooks

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Bus routes one emitted event to every matching active subscription.
type Bus struct {
	store      *Store
	dispatcher *Dispatcher
}

func NewBus(store *Store, dispatcher *Dispatcher) *Bus {
	return &Bus{store: store, dispatcher: dispatcher}
}

// Emit stamps the event and hands one delivery per matching subscription to
// the dispatcher. It never waits on network I/O and never surfaces delivery
// failures: producers sit on user-interaction paths and must not block or
// fail because a remote endpoint is slow or down.
func (b *Bus) Emit(eventType string, payload interface{}) {
	if !validEvents[eventType] {
		log.Warn().Str("event_type", eventType).Msg("dropping event of unknown type")
		return
	}

	var matched []Subscription
	for _, sub := range b.store.List() {
		if sub.Active && sub.wantsEvent(eventType) {
			matched = append(matched, sub)
		}
	}
	if len(matched) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	for _, sub := range matched {
		b.dispatcher.Dispatch(sub, event)
	}
}
