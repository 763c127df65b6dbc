package webhooks

import (
	"testing"

	"pgregory.net/rapid"
	"pokewatch/internal/platform/config"
	"pokewatch/internal/platform/storage"
)

func TestStore_CreateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		db, err := storage.Open(config.StorageConfig{Path: ":memory:", MaxConnections: 1})
		if err != nil {
			t.Fatalf("Failed to open storage: %v", err)
		}
		defer db.Close()
		store := NewStore(storage.NewKV(db))

		n := rapid.IntRange(1, 20).Draw(t, "n")
		names := make([]string, 0, n)
		ids := make(map[string]bool, n)

		for i := 0; i < n; i++ {
			name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9 ]{0,15}`).Draw(t, "name")
			host := rapid.StringMatching(`[a-z]{1,10}\.example\.com`).Draw(t, "host")
			events := rapid.SliceOfNDistinct(
				rapid.SampledFrom(ValidEventTypes()), 1, 4,
				func(s string) string { return s },
			).Draw(t, "events")
			active := rapid.Bool().Draw(t, "active")

			sub, err := store.Create(name, "https://"+host+"/hook", events, "", active)
			if err != nil {
				t.Fatalf("valid create rejected: %v", err)
			}

			if ids[sub.ID] {
				t.Fatalf("duplicate id %q", sub.ID)
			}
			ids[sub.ID] = true
			if len(sub.Events) == 0 {
				t.Fatal("stored subscription has empty events")
			}
			names = append(names, name)
		}

		// Insertion order is preserved in the snapshot.
		subs := store.List()
		if len(subs) != n {
			t.Fatalf("got %d subscriptions, want %d", len(subs), n)
		}
		for i, sub := range subs {
			if sub.Name != names[i] {
				t.Fatalf("position %d holds %q, want %q", i, sub.Name, names[i])
			}
		}

		// A reload sees the exact same ordered collection.
		reloaded := NewStore(storage.NewKV(db))
		for i, sub := range reloaded.List() {
			if sub.ID != subs[i].ID {
				t.Fatalf("reload changed order at %d", i)
			}
		}
	})
}
