package gateway

import (
	"context"
	"time"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/property"
	"github.com/sells-group/compliance-gateway/internal/record"
)

// FetchGrouped fetches f's records for every id in one request and
// partitions them by building number. The result has an entry for every
// requested id, empty when nothing matched. An empty id list returns an
// empty map without a request. since, when non-nil, floors the family's
// date column.
func FetchGrouped[T any](ctx context.Context, c *Client, f endpoint.Family, s record.Schema[T], ids []string, since *time.Time) (map[string][]T, error) {
	out := make(map[string][]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// Several requested spellings may normalize to the same id.
	byNorm := make(map[string][]string, len(ids))
	for _, id := range ids {
		if _, dup := out[id]; dup {
			continue
		}
		out[id] = []T{}
		if n := property.NormalizeBIN(id); n != "" {
			byNorm[n] = append(byNorm[n], id)
		}
	}
	if len(byNorm) == 0 {
		return out, nil
	}

	recs, err := Fetch(ctx, c, endpoint.Grouped(f, ids, since), s)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		for _, id := range byNorm[property.NormalizeBIN(s.GroupKey(r))] {
			out[id] = append(out[id], r)
		}
	}
	return out, nil
}

// MonthsAgo returns the start of the day n months before now, for use as
// FetchGrouped's since. Non-positive n returns nil (no floor).
func MonthsAgo(n int) *time.Time {
	if n <= 0 {
		return nil
	}
	now := time.Now().UTC()
	t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, -n, 0)
	return &t
}
