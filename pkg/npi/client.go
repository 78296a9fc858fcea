// Package npi provides lookups against the CMS NPI registry (NPPES).
package npi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/meridian-health/provider-qa/internal/resilience"
)

const (
	defaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"
	apiVersion     = "2.1"
)

// Query identifies a provider to look up, by NPI number or by name.
type Query struct {
	NPI       string
	Name      string
	Specialty string // used for the fallback record only
	Address   string // used for the fallback record only
	State     string // used for the fallback record only
}

// Record is the registry view of a provider. When Found is false the record
// echoes the query inputs so downstream scoring still has a row to work with.
type Record struct {
	Found           bool   `json:"npi_found"`
	NPI             string `json:"npi"`
	Name            string `json:"name"`
	PrimaryTaxonomy string `json:"primary_taxonomy"`
	PracticeAddress string `json:"practice_address"`
	LicenseState    string `json:"license_state"`
	Source          string `json:"source"` // "npi_registry" or "input_only"
}

// Client looks up providers in the NPI registry.
type Client interface {
	Lookup(ctx context.Context, q Query) (*Record, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the registry endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for registry calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithRetry sets the retry policy for transient registry failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a registry Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// registryResponse is the JSON shape of the NPPES API.
type registryResponse struct {
	ResultCount int              `json:"result_count"`
	Results     []registryResult `json:"results"`
}

type registryResult struct {
	Number string `json:"number"`
	Basic  struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"basic"`
	Addresses []struct {
		AddressPurpose string `json:"address_purpose"`
		Address1       string `json:"address_1"`
		City           string `json:"city"`
		State          string `json:"state"`
	} `json:"addresses"`
	Taxonomies []struct {
		Desc    string `json:"desc"`
		Primary bool   `json:"primary"`
	} `json:"taxonomies"`
}

// Lookup queries NPPES by number when the query carries an NPI, otherwise by
// first and last name. Any failure yields the input-only fallback record
// rather than an error, so a registry outage never kills a batch.
func (c *client) Lookup(ctx context.Context, q Query) (*Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "npi: rate limit")
	}

	params := url.Values{"version": {apiVersion}}
	npiNumber := strings.TrimSpace(q.NPI)
	name := strings.TrimSpace(q.Name)

	switch {
	case npiNumber != "":
		params.Set("number", npiNumber)
	case name != "":
		parts := strings.Fields(name)
		if len(parts) >= 2 {
			params.Set("first_name", parts[0])
			params.Set("last_name", parts[len(parts)-1])
		}
	}

	resp, err := resilience.DoVal(ctx, c.retry, "npi lookup", func(ctx context.Context) (*registryResponse, error) {
		return c.query(ctx, params)
	})
	if err != nil || resp.ResultCount == 0 || len(resp.Results) == 0 {
		return c.fallback(q, npiNumber, name), nil
	}

	result := resp.Results[0]

	var addr1, city, state string
	for i, a := range result.Addresses {
		if a.AddressPurpose == "LOCATION" || i == 0 {
			addr1, city, state = a.Address1, a.City, a.State
			if a.AddressPurpose == "LOCATION" {
				break
			}
		}
	}

	var taxonomy string
	for i, t := range result.Taxonomies {
		if t.Primary || i == 0 {
			taxonomy = t.Desc
			if t.Primary {
				break
			}
		}
	}

	number := result.Number
	if number == "" {
		number = npiNumber
	}

	return &Record{
		Found:           true,
		NPI:             number,
		Name:            strings.TrimSpace(result.Basic.FirstName + " " + result.Basic.LastName),
		PrimaryTaxonomy: taxonomy,
		PracticeAddress: strings.TrimSpace(strings.Join(nonEmpty(addr1, city, state), " ")),
		LicenseState:    state,
		Source:          "npi_registry",
	}, nil
}

func (c *client) query(ctx context.Context, params url.Values) (*registryResponse, error) {
	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "npi: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "npi: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("npi: registry returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "npi: read body")
	}

	var parsed registryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "npi: parse response")
	}
	return &parsed, nil
}

// fallback echoes the query inputs as an unverified registry record.
func (c *client) fallback(q Query, npiNumber, name string) *Record {
	return &Record{
		Found:           false,
		NPI:             npiNumber,
		Name:            name,
		PrimaryTaxonomy: q.Specialty,
		PracticeAddress: q.Address,
		LicenseState:    q.State,
		Source:          "input_only",
	}
}

func nonEmpty(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
