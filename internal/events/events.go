// Package events publishes a notification for every set of records the
// gateway fetches from upstream, for durable stores and other subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RecordsFetched is emitted after a successful upstream fetch has been
// decoded and cached. Payload holds the decoded records as JSON.
type RecordsFetched struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	CacheKey  string          `json:"cache_key"`
	URL       string          `json:"url"`
	Count     int             `json:"count"`
	Lenient   bool            `json:"lenient,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NewRecordsFetched stamps an event with a fresh id and the current time.
func NewRecordsFetched(kind, cacheKey, url string, count int, payload []byte) RecordsFetched {
	return RecordsFetched{
		ID:        uuid.New(),
		Kind:      kind,
		CacheKey:  cacheKey,
		URL:       url,
		Count:     count,
		Payload:   payload,
		FetchedAt: time.Now().UTC(),
	}
}

// Sink receives fetch events.
type Sink interface {
	Publish(ctx context.Context, ev RecordsFetched) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, RecordsFetched) error { return nil }

// Multi fans an event out to every sink. All sinks are tried; their errors
// are joined.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev RecordsFetched) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
