package geocode

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/meridian-health/provider-qa/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// geocodeGoogle verifies a single address using the Google Geocoding API.
func (v *verifier) geocodeGoogle(ctx context.Context, address string) (*geoMatch, error) {
	if v.googleKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	params := url.Values{
		"address": {address},
		"key":     {v.googleKey},
	}

	body, err := resilience.DoVal(ctx, v.retry, "google geocode", func(ctx context.Context) ([]byte, error) {
		return v.get(ctx, v.googleURL+"?"+params.Encode(), "google")
	})
	if err != nil {
		return nil, err
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	if googleResp.Status != "OK" || len(googleResp.Results) == 0 {
		return &geoMatch{matched: false}, nil
	}

	result := googleResp.Results[0]
	return &geoMatch{
		address: result.FormattedAddress,
		score:   googleLocationTypeScore(result.Geometry.LocationType),
		matched: true,
	}, nil
}

// googleLocationTypeScore maps Google's location_type to a match score.
func googleLocationTypeScore(locType string) float64 {
	switch locType {
	case "ROOFTOP":
		return 1.0
	case "RANGE_INTERPOLATED":
		return 0.9
	case "GEOMETRIC_CENTER":
		return 0.7
	case "APPROXIMATE":
		return 0.5
	default:
		return 0.6
	}
}
