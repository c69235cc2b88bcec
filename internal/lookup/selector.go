// Package lookup picks which endpoint answers a per-building compliance
// query. Identifier lookups are preferred; an address lookup is used only
// when the identifier lookup comes back empty, and the two are never merged.
package lookup

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/gateway"
	"github.com/sells-group/compliance-gateway/internal/property"
	"github.com/sells-group/compliance-gateway/internal/record"
)

// Building identifies the subject of a query. Any field may be empty.
type Building struct {
	BIN     string `json:"bin,omitempty"`
	Address string `json:"address,omitempty"`
	Key     string `json:"key,omitempty"`
}

func (b Building) bin() string { return property.NormalizeBIN(b.BIN) }
func (b Building) key() string { return property.NormalizeKey(b.Key) }

// Selector runs fallback lookups against one gateway client.
type Selector struct {
	client *gateway.Client
}

// NewSelector creates a Selector.
func NewSelector(c *gateway.Client) *Selector {
	return &Selector{client: c}
}

// Violations returns building-code violations for b.
func (s *Selector) Violations(ctx context.Context, b Building) ([]record.Violation, error) {
	return idThenAddress(ctx, s.client, b, endpoint.ViolationByID, endpoint.ViolationByAddress, record.Violations)
}

// Permits returns issued permits for b.
func (s *Selector) Permits(ctx context.Context, b Building) ([]record.Permit, error) {
	return idThenAddress(ctx, s.client, b, endpoint.PermitByID, endpoint.PermitByAddress, record.Permits)
}

// Complaints returns complaints filed against b.
func (s *Selector) Complaints(ctx context.Context, b Building) ([]record.Complaint, error) {
	return idThenAddress(ctx, s.client, b, endpoint.ComplaintByID, endpoint.ComplaintByAddress, record.Complaints)
}

// EnvironmentalViolations returns environmental-control violations for b.
// Building-agency summonses in the hearings dataset are preferred; the
// legacy violations dataset is queried only when that comes back empty.
func (s *Selector) EnvironmentalViolations(ctx context.Context, b Building) ([]record.Violation, error) {
	var hearingErr error
	if key := b.key(); len(key) == property.KeyLen {
		hearings, err := gateway.Fetch(ctx, s.client, endpoint.HearingsByID(key), record.Hearings)
		if err == nil && len(hearings) > 0 {
			out := make([]record.Violation, len(hearings))
			for i, h := range hearings {
				out[i] = h.AsViolation(b.bin())
			}
			return out, nil
		}
		hearingErr = err
	}
	if b.bin() == "" {
		return []record.Violation{}, hearingErr
	}
	legacy, err := gateway.Fetch(ctx, s.client, endpoint.ECBViolationByID(b.bin()), record.ECBViolations)
	if err != nil {
		return nil, errors.Join(hearingErr, err)
	}
	return legacy, nil
}

// idThenAddress issues the identifier lookup first and returns it when
// non-empty. Otherwise the address lookup's result is returned as-is, even
// when it is empty too.
func idThenAddress[T any](
	ctx context.Context,
	c *gateway.Client,
	b Building,
	byID, byAddress func(string) endpoint.Variant,
	schema record.Schema[T],
) ([]T, error) {
	var idErr error
	if bin := b.bin(); bin != "" {
		recs, err := gateway.Fetch(ctx, c, byID(bin), schema)
		if err == nil && len(recs) > 0 {
			return recs, nil
		}
		if err != nil {
			zap.L().Debug("lookup: identifier query failed, trying address",
				zap.String("schema", schema.Name()), zap.String("bin", bin), zap.Error(err))
			if b.Address == "" {
				return nil, err
			}
		}
		idErr = err
	}
	if b.Address == "" {
		return []T{}, nil
	}

	recs, err := gateway.Fetch(ctx, c, byAddress(b.Address), schema)
	if err != nil {
		return nil, errors.Join(idErr, err)
	}
	return recs, nil
}
