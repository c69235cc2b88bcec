package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/record"
)

func TestFetchGrouped_EveryIDPresent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "bin in ('1000001','1000002','1000003')", q.Get("$where"))
		assert.Equal(t, "50000", q.Get("$limit"))
		w.Write([]byte(`[
		  {"isn_dob_bis_viol":"b1","bin":"1000002","issue_date":"2024-01-01","violation_type":"A","violation_category":"ACTIVE"},
		  {"isn_dob_bis_viol":"b2","bin":"1000002","issue_date":"2024-02-01","violation_type":"A","violation_category":"ACTIVE"}
		]`))
	}))
	defer srv.Close()

	ids := []string{"1000001", "1000002", "1000003"}
	got, err := FetchGrouped(context.Background(), newTestClient(t, srv), endpoint.FamilyViolations, record.Violations, ids, nil)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Empty(t, got["1000001"])
	assert.NotNil(t, got["1000001"])
	assert.Len(t, got["1000002"], 2)
	assert.Empty(t, got["1000003"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchGrouped_KeepsCallerSpelling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bin in ('1000002','1034304')", r.URL.Query().Get("$where"))
		w.Write([]byte(`[
		  {"isn_dob_bis_viol":"b1","bin":"1034304","issue_date":"2024-01-01","violation_type":"A","violation_category":"ACTIVE"}
		]`))
	}))
	defer srv.Close()

	ids := []string{" 1034304", "1-034304", "1000002 "}
	got, err := FetchGrouped(context.Background(), newTestClient(t, srv), endpoint.FamilyViolations, record.Violations, ids, nil)
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, id := range ids {
		require.Contains(t, got, id)
	}
	assert.Len(t, got[" 1034304"], 1)
	assert.Len(t, got["1-034304"], 1)
	assert.Empty(t, got["1000002 "])
}

func TestFetchGrouped_SinceFloor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bin__ in ('1000001') AND issuance_date >= '2024-01-01T00:00:00'", r.URL.Query().Get("$where"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := FetchGrouped(context.Background(), newTestClient(t, srv), endpoint.FamilyPermits, record.Permits, []string{"1000001"}, &since)
	require.NoError(t, err)
	assert.Equal(t, map[string][]record.Permit{"1000001": {}}, got)
}

func TestFetchGrouped_NoIDsNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := FetchGrouped(context.Background(), c, endpoint.FamilyComplaints, record.Complaints, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = FetchGrouped(context.Background(), c, endpoint.FamilyComplaints, record.Complaints, []string{"n/a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]record.Complaint{"n/a": {}}, got)
	assert.Zero(t, hits.Load())
}

func TestFetchGrouped_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := FetchGrouped(context.Background(), newTestClient(t, srv), endpoint.FamilyInspections, record.Inspections, []string{"1000001"}, nil)
	assert.ErrorIs(t, err, ErrServer)
}

func TestMonthsAgo(t *testing.T) {
	assert.Nil(t, MonthsAgo(0))

	got := MonthsAgo(6)
	require.NotNil(t, got)
	assert.True(t, got.Before(time.Now().AddDate(0, -5, 0)))
	assert.Zero(t, got.Hour())
}
