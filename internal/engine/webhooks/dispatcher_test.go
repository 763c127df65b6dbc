package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pokewatch/internal/platform/config"
	"pokewatch/internal/workers"
)

func newTestPool(t *testing.T) *workers.Pool {
	t.Helper()
	pool := workers.NewPool(8, 5*time.Second)
	t.Cleanup(pool.Close)
	return pool
}

type receivedDelivery struct {
	Body   deliveryPayload
	Secret string
	Header http.Header
}

type deliveryPayload struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
	App       struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"app"`
}

// hookServer is a test webhook endpoint that records every delivery.
type hookServer struct {
	*httptest.Server
	mu       sync.Mutex
	received []receivedDelivery
	status   int
}

func newHookServer(t *testing.T, status int) *hookServer {
	t.Helper()
	hs := &hookServer{status: status}
	hs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body deliveryPayload
		json.Unmarshal(data, &body)

		hs.mu.Lock()
		hs.received = append(hs.received, receivedDelivery{
			Body:   body,
			Secret: r.Header.Get("X-Webhook-Secret"),
			Header: r.Header.Clone(),
		})
		hs.mu.Unlock()

		w.WriteHeader(hs.status)
	}))
	t.Cleanup(hs.Close)
	return hs
}

func (hs *hookServer) count() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return len(hs.received)
}

func (hs *hookServer) last() receivedDelivery {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.received[len(hs.received)-1]
}

func newTestBus(t *testing.T) (*Bus, *Store, *Dispatcher) {
	t.Helper()
	store := NewStore(newTestKV(t))
	pool := newTestPool(t)
	dispatcher := NewDispatcher(store, pool,
		config.WebhooksConfig{DeliveryTimeout: 5 * time.Second, MaxConcurrent: 8},
		config.AppConfig{Name: "Pokemon App", Version: "1.0.0"},
	)
	return NewBus(store, dispatcher), store, dispatcher
}

// waitFor polls cond until it holds or the deadline passes. Deliveries are
// asynchronous, so assertions about their effects need a grace window.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEmit_DeliversToMatchingSubscription(t *testing.T) {
	bus, store, _ := newTestBus(t)
	hs := newHookServer(t, http.StatusOK)

	sub, err := store.Create("S1", hs.URL, []string{EventPokemonViewed}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bus.Emit(EventPokemonViewed, map[string]interface{}{"id": 25, "name": "pikachu"})

	waitFor(t, func() bool { return hs.count() == 1 })

	got := hs.last()
	if got.Body.Type != EventPokemonViewed {
		t.Errorf("got type %q, want %q", got.Body.Type, EventPokemonViewed)
	}
	if got.Body.Payload["name"] != "pikachu" {
		t.Errorf("got payload %v, want pikachu", got.Body.Payload)
	}
	if got.Body.App.Name != "Pokemon App" || got.Body.App.Version != "1.0.0" {
		t.Errorf("got app metadata %+v", got.Body.App)
	}
	if got.Body.Timestamp.IsZero() {
		t.Error("expected a timestamp on the delivery body")
	}
	if got.Secret != "" {
		t.Error("expected no secret header for a secretless subscription")
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("got content type %q", got.Header.Get("Content-Type"))
	}
	if got.Header.Get("X-Delivery-Id") == "" {
		t.Error("expected a delivery id header")
	}

	waitFor(t, func() bool {
		s, _ := store.GetByID(sub.ID)
		return s.LastTriggered != nil
	})
}

func TestEmit_SecretHeader(t *testing.T) {
	bus, store, _ := newTestBus(t)
	hs := newHookServer(t, http.StatusOK)

	store.Create("S", hs.URL, []string{EventFavoriteAdded}, "whsec_123", true)

	bus.Emit(EventFavoriteAdded, map[string]interface{}{"id": 1})

	waitFor(t, func() bool { return hs.count() == 1 })
	if got := hs.last().Secret; got != "whsec_123" {
		t.Errorf("got X-Webhook-Secret %q, want %q", got, "whsec_123")
	}
}

func TestEmit_FiltersInactiveAndNonMatching(t *testing.T) {
	bus, store, _ := newTestBus(t)
	active := newHookServer(t, http.StatusOK)
	inactive := newHookServer(t, http.StatusOK)
	otherEvent := newHookServer(t, http.StatusOK)

	store.Create("active", active.URL, []string{EventSearchPerformed}, "", true)
	store.Create("inactive", inactive.URL, []string{EventSearchPerformed}, "", false)
	store.Create("other", otherEvent.URL, []string{EventPokemonViewed}, "", true)

	bus.Emit(EventSearchPerformed, map[string]interface{}{"query": "pikachu"})

	waitFor(t, func() bool { return active.count() == 1 })
	time.Sleep(100 * time.Millisecond)

	if inactive.count() != 0 {
		t.Error("inactive subscription must not receive deliveries")
	}
	if otherEvent.count() != 0 {
		t.Error("non-matching subscription must not receive deliveries")
	}
	if active.count() != 1 {
		t.Errorf("got %d deliveries to the active subscription, want exactly 1", active.count())
	}
}

func TestEmit_NoMatches_NoCalls(t *testing.T) {
	bus, store, _ := newTestBus(t)
	hs := newHookServer(t, http.StatusOK)

	store.Create("S", hs.URL, []string{EventPokemonViewed}, "", false)

	bus.Emit(EventPokemonViewed, nil)
	bus.Emit(EventSearchPerformed, nil)

	time.Sleep(100 * time.Millisecond)
	if hs.count() != 0 {
		t.Errorf("got %d deliveries, want 0", hs.count())
	}
}

func TestEmit_UnknownEventTypeDropped(t *testing.T) {
	bus, store, _ := newTestBus(t)
	hs := newHookServer(t, http.StatusOK)

	store.Create("S", hs.URL, []string{EventPokemonViewed}, "", true)

	bus.Emit("pokemon.evolved", nil)

	time.Sleep(100 * time.Millisecond)
	if hs.count() != 0 {
		t.Error("events outside the fixed set must not dispatch")
	}
}

func TestEmit_FanOutIsolation(t *testing.T) {
	bus, store, _ := newTestBus(t)
	healthy := newHookServer(t, http.StatusOK)

	// A dead endpoint: refuse connections entirely.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	failing, _ := store.Create("failing", deadURL, []string{EventPokemonViewed}, "", true)
	ok, _ := store.Create("ok", healthy.URL, []string{EventPokemonViewed}, "", true)

	bus.Emit(EventPokemonViewed, map[string]interface{}{"id": 1, "name": "bulbasaur"})

	// The healthy subscription is delivered and marked, despite its sibling.
	waitFor(t, func() bool { return healthy.count() == 1 })
	waitFor(t, func() bool {
		s, _ := store.GetByID(ok.ID)
		return s.LastTriggered != nil
	})

	s, _ := store.GetByID(failing.ID)
	if s.LastTriggered != nil {
		t.Error("failed delivery must not set lastTriggered")
	}
	if !s.Active {
		t.Error("delivery failure must never deactivate a subscription")
	}
}

func TestDelivery_Non2xxIsFailure(t *testing.T) {
	bus, store, _ := newTestBus(t)
	hs := newHookServer(t, http.StatusInternalServerError)

	sub, _ := store.Create("S", hs.URL, []string{EventPokemonViewed}, "", true)

	bus.Emit(EventPokemonViewed, nil)

	waitFor(t, func() bool { return hs.count() == 1 })
	time.Sleep(100 * time.Millisecond)

	s, _ := store.GetByID(sub.ID)
	if s.LastTriggered != nil {
		t.Error("a non-2xx response must not count as a successful delivery")
	}
	if !s.Active {
		t.Error("delivery failure must never deactivate a subscription")
	}
}

func TestTest_BypassesFilters(t *testing.T) {
	_, store, dispatcher := newTestBus(t)
	hs := newHookServer(t, http.StatusOK)

	// Inactive and not subscribed to anything relevant: a test still fires.
	sub, _ := store.Create("S", hs.URL, []string{EventFavoriteAdded}, "", false)

	if !dispatcher.Test(context.Background(), sub) {
		t.Fatal("expected test delivery to succeed")
	}

	if hs.count() != 1 {
		t.Fatalf("got %d deliveries, want exactly 1", hs.count())
	}

	got := hs.last()
	if got.Body.Type != EventTest {
		t.Errorf("got type %q, want %q", got.Body.Type, EventTest)
	}
	if got.Body.Payload["webhook"] != "S" {
		t.Errorf("got payload %v, want webhook name", got.Body.Payload)
	}

	// The test path reports the outcome but does not record a trigger.
	s, _ := store.GetByID(sub.ID)
	if s.LastTriggered != nil {
		t.Error("test deliveries must not set lastTriggered")
	}
}

func TestTest_ReportsFailure(t *testing.T) {
	_, store, dispatcher := newTestBus(t)
	hs := newHookServer(t, http.StatusBadGateway)

	sub, _ := store.Create("S", hs.URL, []string{EventPokemonViewed}, "", true)

	if dispatcher.Test(context.Background(), sub) {
		t.Error("expected test delivery to report failure")
	}
}
