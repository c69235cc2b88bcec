package lookup

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/gateway"
	"github.com/sells-group/compliance-gateway/internal/property"
	"github.com/sells-group/compliance-gateway/internal/record"
)

// Snapshot is every compliance category for one building. A category whose
// lookup failed is left empty and its error recorded in Errors.
type Snapshot struct {
	Building      Building            `json:"building"`
	Violations    []record.Violation  `json:"violations"`
	Environmental []record.Violation  `json:"environmental_violations"`
	Permits       []record.Permit     `json:"permits"`
	Complaints    []record.Complaint  `json:"complaints"`
	Inspections   []record.Inspection `json:"inspections"`
	TaxBills      []record.TaxBill    `json:"tax_bills"`
	Landmarks     []record.Landmark   `json:"landmarks"`
	Errors        map[string]error    `json:"-"`
}

// Failed reports whether any category failed.
func (s *Snapshot) Failed() bool { return len(s.Errors) > 0 }

// snapshotConcurrency bounds in-flight category lookups per building. The
// gateway limiter spaces them anyway; this keeps goroutines short-lived.
const snapshotConcurrency = 4

// Snapshot queries every category for b concurrently. Categories that need
// an identifier b lacks are skipped.
func (s *Selector) Snapshot(ctx context.Context, b Building) *Snapshot {
	snap := &Snapshot{Building: b, Errors: map[string]error{}}
	var mu sync.Mutex
	fail := func(name string, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		snap.Errors[name] = err
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(snapshotConcurrency)
	g.Go(func() error {
		v, err := s.Violations(ctx, b)
		snap.Violations = v
		fail("violations", err)
		return nil
	})
	g.Go(func() error {
		v, err := s.EnvironmentalViolations(ctx, b)
		snap.Environmental = v
		fail("environmental_violations", err)
		return nil
	})
	g.Go(func() error {
		v, err := s.Permits(ctx, b)
		snap.Permits = v
		fail("permits", err)
		return nil
	})
	g.Go(func() error {
		v, err := s.Complaints(ctx, b)
		snap.Complaints = v
		fail("complaints", err)
		return nil
	})
	if bin := b.bin(); bin != "" {
		g.Go(func() error {
			v, err := gateway.Fetch(ctx, s.client, endpoint.InspectionByID(bin), record.Inspections)
			snap.Inspections = v
			fail("inspections", err)
			return nil
		})
		g.Go(func() error {
			v, err := gateway.Fetch(ctx, s.client, endpoint.LandmarkStatus(bin), record.Landmarks)
			snap.Landmarks = v
			fail("landmarks", err)
			return nil
		})
	}
	if key := b.key(); len(key) == property.KeyLen {
		g.Go(func() error {
			v, err := gateway.Fetch(ctx, s.client, endpoint.TaxBill(key), record.TaxBills)
			snap.TaxBills = v
			fail("tax_bills", err)
			return nil
		})
	}
	_ = g.Wait()
	return snap
}
