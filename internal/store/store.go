// Package store keeps a durable history of upstream fetches. Each stored
// fetch carries the decoded records as JSON, so the most recent snapshot of
// any query survives process restarts and cache eviction.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sells-group/compliance-gateway/internal/events"
)

// Fetch is one persisted upstream fetch.
type Fetch struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	CacheKey  string          `json:"cache_key"`
	URL       string          `json:"url"`
	Count     int             `json:"count"`
	Lenient   bool            `json:"lenient"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Filter specifies criteria for listing fetches.
type Filter struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// DefaultListLimit applies when Filter.Limit is not positive.
const DefaultListLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store persists fetch events. It is an events.Sink so it can be attached
// to a gateway client directly or through events.Multi.
type Store interface {
	events.Sink

	// Latest returns the newest fetch for cacheKey, or nil when none exists.
	Latest(ctx context.Context, cacheKey string) (*Fetch, error)
	// List returns fetches newest first, without payloads.
	List(ctx context.Context, filter Filter) ([]Fetch, error)
	// Prune deletes fetches older than before and reports how many went.
	Prune(ctx context.Context, before time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

func fromEvent(ev events.RecordsFetched) Fetch {
	return Fetch{
		ID:        ev.ID.String(),
		Kind:      ev.Kind,
		CacheKey:  ev.CacheKey,
		URL:       ev.URL,
		Count:     ev.Count,
		Lenient:   ev.Lenient,
		Payload:   ev.Payload,
		FetchedAt: ev.FetchedAt.UTC(),
	}
}

func payloadOrEmpty(p json.RawMessage) []byte {
	if len(p) == 0 {
		return []byte("[]")
	}
	return p
}
