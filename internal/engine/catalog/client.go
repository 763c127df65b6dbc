package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"pokewatch/internal/engine/webhooks"
	"pokewatch/internal/platform/config"
)

// ErrNotFound reports that the upstream has no creature for the given
// identifier.
var ErrNotFound = errors.New("not found in catalog")

// maxPokemonID bounds the id space for Random. The upstream grows slowly;
// ids above this are ignored rather than probed.
const maxPokemonID = 1010

// EventEmitter is the producer-side view of the event bus.
type EventEmitter interface {
	Emit(eventType string, payload interface{})
}

// Client is a read-through cached client over the upstream creature API.
// Responses are cached as raw JSON in a bounded expiring LRU; concurrent
// misses for the same resource are collapsed with singleflight. Retries
// apply to this read path only, never to webhook deliveries.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *lru.LRU[string, []byte]
	group   singleflight.Group
	bus     EventEmitter
}

func New(cfg config.CatalogConfig, bus EventEmitter) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.HTTPClient.Timeout = cfg.RequestTimeout
	retryClient.Logger = nil

	size := cfg.CacheSize
	if size <= 0 {
		size = 512
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    retryClient.StandardClient(),
		cache:   lru.NewLRU[string, []byte](size, nil, cfg.CacheTTL),
		bus:     bus,
	}
}

// List returns one page of the creature index.
func (c *Client) List(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var page Page
	path := fmt.Sprintf("/pokemon?limit=%d&offset=%d", limit, offset)
	if err := c.fetch(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one creature by id or name and emits a pokemon.viewed event on
// every successful fetch, cache hit or not.
func (c *Client) Get(ctx context.Context, idOrName string) (*Pokemon, error) {
	p, err := c.getPokemon(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	c.bus.Emit(webhooks.EventPokemonViewed, map[string]interface{}{
		"id":   p.ID,
		"name": p.Name,
	})
	return p, nil
}

// Species fetches the species record for a creature (descriptions, genera).
func (c *Client) Species(ctx context.Context, idOrName string) (*Species, error) {
	var sp Species
	if err := c.fetch(ctx, "/pokemon-species/"+normalize(idOrName), &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// Random fetches a random creature.
func (c *Client) Random(ctx context.Context) (*Pokemon, error) {
	id := rand.Intn(maxPokemonID) + 1
	return c.Get(ctx, strconv.Itoa(id))
}

// ByType lists the creatures of one type.
func (c *Client) ByType(ctx context.Context, typeName string) ([]Ref, error) {
	var listing typeListing
	if err := c.fetch(ctx, "/type/"+normalize(typeName), &listing); err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(listing.Pokemon))
	for _, entry := range listing.Pokemon {
		refs = append(refs, entry.Pokemon)
	}
	return refs, nil
}

// Search resolves a name or id lookup. A lookup that yields a result emits a
// search.performed event; a miss yields an empty result and no event.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	result := &SearchResult{Query: query}

	p, err := c.getPokemon(ctx, query)
	if errors.Is(err, ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.ResultCount = 1
	result.FirstResult = p

	c.bus.Emit(webhooks.EventSearchPerformed, map[string]interface{}{
		"query":       query,
		"resultCount": result.ResultCount,
		"firstResult": p.Name,
	})
	return result, nil
}

func (c *Client) getPokemon(ctx context.Context, idOrName string) (*Pokemon, error) {
	var p Pokemon
	if err := c.fetch(ctx, "/pokemon/"+normalize(idOrName), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// fetch reads one resource through the cache and decodes it into out.
func (c *Client) fetch(ctx context.Context, path string, out interface{}) error {
	if data, ok := c.cache.Get(path); ok {
		return json.Unmarshal(data, out)
	}

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		data, err := c.fetchUpstream(ctx, path)
		if err != nil {
			return nil, err
		}
		c.cache.Add(path, data)
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}

func (c *Client) fetchUpstream(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog upstream returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	log.Debug().
		Str("path", path).
		Dur("duration", time.Since(start)).
		Msg("catalog fetch")

	return data, nil
}

func normalize(idOrName string) string {
	return strings.ToLower(strings.TrimSpace(idOrName))
}
