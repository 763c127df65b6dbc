package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pokewatch/internal/engine/webhooks"
	"pokewatch/internal/platform/config"
)

type recordedEvent struct {
	Type    string
	Payload map[string]interface{}
}

type fakeBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBus) Emit(eventType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := recordedEvent{Type: eventType}
	if m, ok := payload.(map[string]interface{}); ok {
		rec.Payload = m
	}
	b.events = append(b.events, rec)
}

func (b *fakeBus) all() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

// fakeUpstream serves a two-creature catalog and counts hits per path.
func fakeUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	pokemon := map[string]Pokemon{
		"pikachu":   {ID: 25, Name: "pikachu", Height: 4, Weight: 60},
		"25":        {ID: 25, Name: "pikachu", Height: 4, Weight: 60},
		"bulbasaur": {ID: 1, Name: "bulbasaur", Height: 7, Weight: 69},
		"1":         {ID: 1, Name: "bulbasaur", Height: 7, Weight: 69},
	}

	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/pokemon/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := r.URL.Path[len("/pokemon/"):]
		p, ok := pokemon[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("/pokemon", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(Page{
			Count:   2,
			Results: []Ref{{Name: "bulbasaur"}, {Name: "pikachu"}},
		})
	})
	mux.HandleFunc("/pokemon-species/pikachu", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(Species{ID: 25, Name: "pikachu"})
	})
	mux.HandleFunc("/type/electric", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(typeListing{
			Pokemon: []struct {
				Pokemon Ref `json:"pokemon"`
			}{{Pokemon: Ref{Name: "pikachu"}}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T) (*Client, *fakeBus, *atomic.Int64) {
	t.Helper()
	srv, hits := fakeUpstream(t)
	bus := &fakeBus{}
	client := New(config.CatalogConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
		RetryMax:       0,
		CacheSize:      64,
		CacheTTL:       time.Minute,
	}, bus)
	return client, bus, hits
}

func TestClient_Get(t *testing.T) {
	client, bus, _ := newTestClient(t)

	p, err := client.Get(context.Background(), "Pikachu")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.ID != 25 || p.Name != "pikachu" {
		t.Errorf("got %+v, want pikachu", p)
	}

	events := bus.all()
	if len(events) != 1 || events[0].Type != webhooks.EventPokemonViewed {
		t.Fatalf("got events %v, want one pokemon.viewed", events)
	}
	if events[0].Payload["name"] != "pikachu" {
		t.Errorf("viewed payload missing name: %v", events[0].Payload)
	}
}

func TestClient_Get_NotFound(t *testing.T) {
	client, bus, _ := newTestClient(t)

	_, err := client.Get(context.Background(), "missingno")
	if err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if len(bus.all()) != 0 {
		t.Error("a failed fetch must not emit a viewed event")
	}
}

func TestClient_Get_CachesResponses(t *testing.T) {
	client, bus, hits := newTestClient(t)

	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), "pikachu"); err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("got %d upstream fetches, want 1", got)
	}
	// Cache hits still count as views.
	if got := len(bus.all()); got != 3 {
		t.Errorf("got %d viewed events, want 3", got)
	}
}

func TestClient_List(t *testing.T) {
	client, bus, _ := newTestClient(t)

	page, err := client.List(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Count != 2 || len(page.Results) != 2 {
		t.Errorf("got %+v, want a two-entry page", page)
	}
	if len(bus.all()) != 0 {
		t.Error("listing the index must not emit events")
	}
}

func TestClient_Species(t *testing.T) {
	client, _, _ := newTestClient(t)

	sp, err := client.Species(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Species failed: %v", err)
	}
	if sp.ID != 25 {
		t.Errorf("got %+v, want species 25", sp)
	}
}

func TestClient_ByType(t *testing.T) {
	client, _, _ := newTestClient(t)

	refs, err := client.ByType(context.Background(), "Electric")
	if err != nil {
		t.Fatalf("ByType failed: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "pikachu" {
		t.Errorf("got %v, want [pikachu]", refs)
	}
}

func TestClient_Search_Hit(t *testing.T) {
	client, bus, _ := newTestClient(t)

	result, err := client.Search(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.ResultCount != 1 || result.FirstResult == nil || result.FirstResult.Name != "pikachu" {
		t.Errorf("got %+v, want one pikachu result", result)
	}

	events := bus.all()
	if len(events) != 1 || events[0].Type != webhooks.EventSearchPerformed {
		t.Fatalf("got events %v, want one search.performed", events)
	}
	if events[0].Payload["query"] != "pikachu" || events[0].Payload["resultCount"] != 1 {
		t.Errorf("unexpected search payload: %v", events[0].Payload)
	}
}

func TestClient_Search_Miss(t *testing.T) {
	client, bus, _ := newTestClient(t)

	result, err := client.Search(context.Background(), "missingno")
	if err != nil {
		t.Fatalf("a miss is not an error, got: %v", err)
	}
	if result.ResultCount != 0 || result.FirstResult != nil {
		t.Errorf("got %+v, want an empty result", result)
	}
	if len(bus.all()) != 0 {
		t.Error("a search miss must not emit an event")
	}
}

func TestClient_Random(t *testing.T) {
	srv, _ := fakeUpstream(t)
	bus := &fakeBus{}
	client := New(config.CatalogConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
		CacheSize:      64,
		CacheTTL:       time.Minute,
	}, bus)

	// Most random ids miss the two-creature fixture; ErrNotFound is
	// acceptable, anything else is a wiring problem.
	p, err := client.Random(context.Background())
	if err != nil && err != ErrNotFound {
		t.Fatalf("Random failed: %v", err)
	}
	if err == nil && p.ID == 0 {
		t.Error("successful random lookup returned an empty creature")
	}
}
