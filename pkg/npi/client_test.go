package npi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-health/provider-qa/internal/resilience"
)

const registryJSON = `{
	"result_count": 1,
	"results": [{
		"number": "1234567890",
		"basic": {"first_name": "Sarah", "last_name": "Smith"},
		"addresses": [
			{"address_purpose": "MAILING", "address_1": "PO Box 1", "city": "Columbus", "state": "OH"},
			{"address_purpose": "LOCATION", "address_1": "123 Main St", "city": "Columbus", "state": "OH"}
		],
		"taxonomies": [
			{"desc": "Internal Medicine", "primary": false},
			{"desc": "Cardiology", "primary": true}
		]
	}]
}`

func TestLookup_ByNumber(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Encode())
		w.Write([]byte(registryJSON)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	rec, err := c.Lookup(context.Background(), Query{NPI: "1234567890"})
	require.NoError(t, err)

	assert.True(t, rec.Found)
	assert.Equal(t, "1234567890", rec.NPI)
	assert.Equal(t, "Sarah Smith", rec.Name)
	assert.Equal(t, "Cardiology", rec.PrimaryTaxonomy)
	assert.Equal(t, "123 Main St Columbus OH", rec.PracticeAddress)
	assert.Equal(t, "OH", rec.LicenseState)
	assert.Equal(t, "npi_registry", rec.Source)
	assert.Contains(t, gotQuery.Load().(string), "number=1234567890")
}

func TestLookup_ByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Sarah", r.URL.Query().Get("first_name"))
		assert.Equal(t, "Smith", r.URL.Query().Get("last_name"))
		w.Write([]byte(registryJSON)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	rec, err := c.Lookup(context.Background(), Query{Name: "Dr. Sarah Smith"})
	require.NoError(t, err)
	assert.True(t, rec.Found)
}

func TestLookup_NoResults_Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result_count": 0, "results": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	q := Query{
		NPI: "9999999999", Name: "Dr. Jane Doe",
		Specialty: "Oncology", Address: "1 Elm St", State: "TX",
	}
	rec, err := c.Lookup(context.Background(), q)
	require.NoError(t, err)

	assert.False(t, rec.Found)
	assert.Equal(t, "9999999999", rec.NPI)
	assert.Equal(t, "Dr. Jane Doe", rec.Name)
	assert.Equal(t, "Oncology", rec.PrimaryTaxonomy)
	assert.Equal(t, "1 Elm St", rec.PracticeAddress)
	assert.Equal(t, "TX", rec.LicenseState)
	assert.Equal(t, "input_only", rec.Source)
}

func TestLookup_ServerError_Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
		WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
	rec, err := c.Lookup(context.Background(), Query{NPI: "1234567890", State: "OH"})
	require.NoError(t, err)
	assert.False(t, rec.Found)
	assert.Equal(t, "input_only", rec.Source)
}

func TestLookup_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(registryJSON)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
		WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
	rec, err := c.Lookup(context.Background(), Query{NPI: "1234567890"})
	require.NoError(t, err)
	assert.True(t, rec.Found)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLookup_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(WithRateLimit(0.0001))
	_, err := c.Lookup(ctx, Query{NPI: "1234567890"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
