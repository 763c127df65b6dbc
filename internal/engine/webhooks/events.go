package webhooks

import "time"

// Event types producers are allowed to emit. Subscriptions may only register
// interest in these.
const (
	EventFavoriteAdded   = "pokemon.favorite.added"
	EventFavoriteRemoved = "pokemon.favorite.removed"
	EventPokemonViewed   = "pokemon.viewed"
	EventSearchPerformed = "search.performed"

	// EventTest is synthetic and only ever sent through the explicit test
	// path, never through the bus.
	EventTest = "webhook.test"
)

var validEvents = map[string]bool{
	EventFavoriteAdded:   true,
	EventFavoriteRemoved: true,
	EventPokemonViewed:   true,
	EventSearchPerformed: true,
}

// ValidEventTypes returns the emittable event types in a stable order.
func ValidEventTypes() []string {
	return []string{
		EventFavoriteAdded,
		EventFavoriteRemoved,
		EventPokemonViewed,
		EventSearchPerformed,
	}
}

// Event is an ephemeral notification. Events are never persisted; if nothing
// matches at emission time they are simply dropped.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
