package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/meridian-health/provider-qa/internal/resilience"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// censusOneLineResponse is the JSON response from the Census single-address API.
type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	MatchedAddress string `json:"matchedAddress"`
}

// geoMatch is the internal outcome of one geocoder call.
type geoMatch struct {
	address string
	score   float64
	matched bool
}

// geocodeCensus verifies a single address using the Census one-line API.
// One-line matches are exact, so a hit always scores 1.0.
func (v *verifier) geocodeCensus(ctx context.Context, address string) (*geoMatch, error) {
	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	body, err := resilience.DoVal(ctx, v.retry, "census geocode", func(ctx context.Context) ([]byte, error) {
		return v.get(ctx, v.censusURL+"?"+params.Encode(), "census")
	})
	if err != nil {
		return nil, err
	}

	var censusResp censusOneLineResponse
	if err := json.Unmarshal(body, &censusResp); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}

	if len(censusResp.Result.AddressMatches) == 0 {
		return &geoMatch{matched: false}, nil
	}

	return &geoMatch{
		address: censusResp.Result.AddressMatches[0].MatchedAddress,
		score:   1.0,
		matched: true,
	}, nil
}

// get performs a GET request and returns the body, marking retryable
// failures as transient.
func (v *verifier) get(ctx context.Context, reqURL, provider string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s build request", provider)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "geocode: %s request", provider), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s read body", provider)
	}
	return body, nil
}
