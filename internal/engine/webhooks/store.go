package webhooks

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"pokewatch/internal/platform/storage"
)

// storageKey is the fixed key the whole subscription snapshot lives under.
const storageKey = "pokemon_webhooks"

// Store holds the subscription collection. The in-memory snapshot is the
// source of truth: every mutation builds a fresh slice, swaps it in under the
// lock, then persists the whole snapshot and republishes it to watchers.
// Readers always see either the pre- or post-mutation snapshot, never a
// partial write.
type Store struct {
	kv *storage.KV

	mu          sync.RWMutex
	subs        []Subscription
	watchers    map[int]chan []Subscription
	nextWatcher int
}

// NewStore loads the persisted snapshot. Corrupt or unreadable state is
// logged and treated as an empty store, never a startup failure.
func NewStore(kv *storage.KV) *Store {
	s := &Store{
		kv:       kv,
		watchers: make(map[int]chan []Subscription),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, ok, err := s.kv.Get(storageKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read webhook snapshot, starting empty")
		return
	}
	if !ok {
		return
	}

	var subs []Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		log.Error().Err(err).Msg("corrupt webhook snapshot, starting empty")
		return
	}
	s.subs = subs
}

// UpdatePatch carries the fields an Update may change. Nil pointers mean
// "not provided". ID and CreatedAt are not patchable.
type UpdatePatch struct {
	Name          *string
	URL           *string
	Events        []string
	Secret        *string
	Active        *bool
	LastTriggered *time.Time
}

// List returns the current snapshot in storage order.
func (s *Store) List() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// GetByID returns the subscription with the given id, if present.
func (s *Store) GetByID(id string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subscription{}, false
}

// Create validates the input, appends a new subscription and persists the
// snapshot. Returns a ValidationError for empty name, malformed url or an
// empty event set.
func (s *Store) Create(name, rawURL string, events []string, secret string, active bool) (Subscription, error) {
	if err := validateName(name); err != nil {
		return Subscription{}, err
	}
	if err := validateURL(rawURL); err != nil {
		return Subscription{}, err
	}
	deduped, err := validateEvents(events)
	if err != nil {
		return Subscription{}, err
	}

	sub := Subscription{
		ID:        "wh_" + uuid.New().String(),
		Name:      name,
		URL:       rawURL,
		Events:    deduped,
		Secret:    secret,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Subscription, len(s.subs), len(s.subs)+1)
	copy(next, s.subs)
	s.subs = append(next, sub)

	s.persistLocked()
	s.publishLocked()

	return sub, nil
}

// Update merges the patch over the existing record. Returns ok=false when the
// id is unknown. Patched url and events are re-validated; id and createdAt
// are never touched.
func (s *Store) Update(id string, patch UpdatePatch) (Subscription, bool, error) {
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return Subscription{}, false, err
		}
	}
	if patch.URL != nil {
		if err := validateURL(*patch.URL); err != nil {
			return Subscription{}, false, err
		}
	}
	var deduped []string
	if patch.Events != nil {
		var err error
		deduped, err = validateEvents(patch.Events)
		if err != nil {
			return Subscription{}, false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, sub := range s.subs {
		if sub.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Subscription{}, false, nil
	}

	updated := s.subs[idx]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.URL != nil {
		updated.URL = *patch.URL
	}
	if deduped != nil {
		updated.Events = deduped
	}
	if patch.Secret != nil {
		updated.Secret = *patch.Secret
	}
	if patch.Active != nil {
		updated.Active = *patch.Active
	}
	if patch.LastTriggered != nil {
		t := *patch.LastTriggered
		updated.LastTriggered = &t
	}

	next := make([]Subscription, len(s.subs))
	copy(next, s.subs)
	next[idx] = updated
	s.subs = next

	s.persistLocked()
	s.publishLocked()

	return updated, true, nil
}

// Delete removes the subscription by id and reports whether a record was
// actually removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, sub := range s.subs {
		if sub.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	next := make([]Subscription, 0, len(s.subs)-1)
	next = append(next, s.subs[:idx]...)
	next = append(next, s.subs[idx+1:]...)
	s.subs = next

	s.persistLocked()
	s.publishLocked()

	return true
}

// TouchLastTriggered records a successful delivery time. Unknown ids are
// ignored (the subscription may have been deleted mid-flight).
func (s *Store) TouchLastTriggered(id string, at time.Time) {
	_, ok, err := s.Update(id, UpdatePatch{LastTriggered: &at})
	if err != nil {
		log.Error().Err(err).Str("webhook_id", id).Msg("failed to record last triggered time")
		return
	}
	if !ok {
		log.Debug().Str("webhook_id", id).Msg("delivery completed for deleted subscription")
	}
}

// Subscribe returns a channel carrying the full snapshot on every mutation,
// starting with the current one. The channel keeps only the latest value;
// slow consumers see the most recent snapshot, not every intermediate one.
// The returned cancel func unregisters and closes the channel.
func (s *Store) Subscribe() (<-chan []Subscription, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan []Subscription, 1)
	ch <- s.snapshotLocked()

	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}
	return ch, cancel
}

func (s *Store) snapshotLocked() []Subscription {
	snapshot := make([]Subscription, len(s.subs))
	copy(snapshot, s.subs)
	return snapshot
}

// persistLocked writes the snapshot to local storage. Persistence is
// best-effort: a failed write is logged and the in-memory state stands, so a
// crash before the next successful write loses the latest mutation.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.subs)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal webhook snapshot")
		return
	}
	if err := s.kv.Put(storageKey, data); err != nil {
		log.Error().Err(err).Msg("failed to persist webhook snapshot")
	}
}

func (s *Store) publishLocked() {
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s.snapshotLocked()
	}
}
