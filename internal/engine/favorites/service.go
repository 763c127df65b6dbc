package favorites

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"pokewatch/internal/engine/webhooks"
	"pokewatch/internal/platform/storage"
)

const storageKey = "pokemon_favorites"

// Favorite is one entry in the locally persisted favorites set.
type Favorite struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Types     []string  `json:"types"`
	DateAdded time.Time `json:"dateAdded"`
}

// EventEmitter is the producer-side view of the event bus. Emit must not
// block on delivery.
type EventEmitter interface {
	Emit(eventType string, payload interface{})
}

// Service keeps the favorites set in memory, persists the whole snapshot on
// every mutation, and emits a webhook event after each successful change.
type Service struct {
	kv  *storage.KV
	bus EventEmitter

	mu        sync.RWMutex
	favorites []Favorite
}

func NewService(kv *storage.KV, bus EventEmitter) *Service {
	s := &Service{kv: kv, bus: bus}
	s.load()
	return s
}

func (s *Service) load() {
	data, ok, err := s.kv.Get(storageKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read favorites snapshot, starting empty")
		return
	}
	if !ok {
		return
	}

	var favs []Favorite
	if err := json.Unmarshal(data, &favs); err != nil {
		log.Error().Err(err).Msg("corrupt favorites snapshot, starting empty")
		return
	}
	s.favorites = favs
}

// List returns the favorites in insertion order.
func (s *Service) List() []Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// ListSorted returns the favorites ordered by name (ascending) or by date
// added (newest first).
func (s *Service) ListSorted(sortBy string) []Favorite {
	favs := s.List()
	switch sortBy {
	case "name":
		sort.Slice(favs, func(i, j int) bool { return favs[i].Name < favs[j].Name })
	default:
		sort.Slice(favs, func(i, j int) bool { return favs[i].DateAdded.After(favs[j].DateAdded) })
	}
	return favs
}

// Get returns the favorite with the given creature id, if present.
func (s *Service) Get(id int) (Favorite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fav := range s.favorites {
		if fav.ID == id {
			return fav, true
		}
	}
	return Favorite{}, false
}

func (s *Service) IsFavorite(id int) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.favorites)
}

// Add appends the creature to the set. Returns false if it is already a
// favorite. DateAdded is always set here, not taken from the caller.
func (s *Service) Add(fav Favorite) bool {
	s.mu.Lock()
	for _, existing := range s.favorites {
		if existing.ID == fav.ID {
			s.mu.Unlock()
			return false
		}
	}

	fav.DateAdded = time.Now().UTC()
	next := make([]Favorite, len(s.favorites), len(s.favorites)+1)
	copy(next, s.favorites)
	s.favorites = append(next, fav)
	s.persistLocked()
	s.mu.Unlock()

	s.bus.Emit(webhooks.EventFavoriteAdded, fav)
	return true
}

// Remove deletes the creature from the set. Returns false if it was not a
// favorite.
func (s *Service) Remove(id int) bool {
	s.mu.Lock()
	idx := -1
	for i, fav := range s.favorites {
		if fav.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return false
	}

	removed := s.favorites[idx]
	next := make([]Favorite, 0, len(s.favorites)-1)
	next = append(next, s.favorites[:idx]...)
	next = append(next, s.favorites[idx+1:]...)
	s.favorites = next
	s.persistLocked()
	s.mu.Unlock()

	s.bus.Emit(webhooks.EventFavoriteRemoved, removed)
	return true
}

// Toggle adds the creature if absent and removes it if present. Returns true
// when the result of the toggle is "favorited".
func (s *Service) Toggle(fav Favorite) bool {
	if s.IsFavorite(fav.ID) {
		s.Remove(fav.ID)
		return false
	}
	s.Add(fav)
	return true
}

// Clear empties the set. One removal event carries all cleared items.
func (s *Service) Clear() {
	s.mu.Lock()
	if len(s.favorites) == 0 {
		s.mu.Unlock()
		return
	}
	removed := s.favorites
	s.favorites = nil
	s.persistLocked()
	s.mu.Unlock()

	s.bus.Emit(webhooks.EventFavoriteRemoved, map[string]interface{}{"items": removed})
}

// Export returns the favorites as indented JSON for backup.
func (s *Service) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.favorites, "", "  ")
}

// Import replaces the whole set from a backup. No events are emitted; an
// import is a restore, not a user mutation.
func (s *Service) Import(data []byte) error {
	var favs []Favorite
	if err := json.Unmarshal(data, &favs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites = favs
	s.persistLocked()
	return nil
}

func (s *Service) snapshotLocked() []Favorite {
	snapshot := make([]Favorite, len(s.favorites))
	copy(snapshot, s.favorites)
	return snapshot
}

func (s *Service) persistLocked() {
	data, err := json.Marshal(s.favorites)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal favorites snapshot")
		return
	}
	if err := s.kv.Put(storageKey, data); err != nil {
		log.Error().Err(err).Msg("failed to persist favorites snapshot")
	}
}
