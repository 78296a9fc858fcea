// Package geocode verifies and normalizes practice addresses via the Census
// Geocoder (primary) and Google (fallback).
package geocode

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/meridian-health/provider-qa/internal/resilience"
)

// Client verifies a provider's address and phone against a geocoder.
type Client interface {
	Verify(ctx context.Context, address, phone string) (*Result, error)
}

// Result holds the normalized contact data and match scores for an address.
// Scores run 0.0 to 1.0; GeoConfirmed is true only when a geocoder matched.
type Result struct {
	NormalizedAddress string  `json:"normalized_address"`
	NormalizedPhone   string  `json:"normalized_phone"`
	AddressMatchScore float64 `json:"address_match_score"`
	PhoneMatchScore   float64 `json:"phone_match_score"`
	GeoConfirmed      bool    `json:"geo_confirmed"`
	Source            string  `json:"source"` // "census", "google_maps", "basic_normalization", "fallback"
}

// Option configures the verifier.
type Option func(*verifier)

// WithGoogleAPIKey enables the Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(v *verifier) {
		v.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Census and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(v *verifier) {
		v.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for geocoder calls.
func WithRateLimit(rps float64) Option {
	return func(v *verifier) {
		v.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithRetry sets the retry policy for transient geocoder failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(v *verifier) {
		v.retry = cfg
	}
}

// WithCacheTTL sets the lookup cache expiry. Zero keeps entries for the
// verifier's lifetime; a negative value disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(v *verifier) {
		if ttl < 0 {
			v.cache = nil
			return
		}
		v.cache = newLookupCache(ttl)
	}
}

// withCensusURL overrides the Census endpoint for tests.
func withCensusURL(u string) Option {
	return func(v *verifier) {
		v.censusURL = u
	}
}

// withGoogleURL overrides the Google endpoint for tests.
func withGoogleURL(u string) Option {
	return func(v *verifier) {
		v.googleURL = u
	}
}

type verifier struct {
	httpClient *http.Client
	googleKey  string
	censusURL  string
	googleURL  string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	cache      *lookupCache
}

// NewClient creates an address verification Client with the given options.
func NewClient(opts ...Option) Client {
	v := &verifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		censusURL:  censusOneLineURL,
		googleURL:  googleGeocodeURL,
		limiter:    rate.NewLimiter(25, 25),
		cache:      newLookupCache(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify normalizes the address and phone, trying Census first and Google if
// configured. A geocoder miss is not an error: the result degrades to basic
// normalization (0.7) when nothing matched, or the fallback score (0.6) when
// every request failed outright. Results are memoized so repeated addresses
// in one roster hit the geocoders once.
func (v *verifier) Verify(ctx context.Context, address, phone string) (*Result, error) {
	var key string
	if v.cache != nil {
		key = cacheKey(address, phone)
		if cached, ok := v.cache.get(key); ok {
			return cached, nil
		}
	}

	result, err := v.verify(ctx, address, phone)
	if err != nil {
		return nil, err
	}
	if v.cache != nil && result.Source != "fallback" {
		v.cache.put(key, result)
	}
	return result, nil
}

func (v *verifier) verify(ctx context.Context, address, phone string) (*Result, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	normalizedAddr := NormalizeAddress(address)
	normalizedPhone := NormalizePhone(phone)

	censusRes, censusErr := v.geocodeCensus(ctx, address)
	if censusErr == nil && censusRes.matched {
		return &Result{
			NormalizedAddress: censusRes.address,
			NormalizedPhone:   normalizedPhone,
			AddressMatchScore: censusRes.score,
			PhoneMatchScore:   phoneMatchScore(normalizedPhone),
			GeoConfirmed:      true,
			Source:            "census",
		}, nil
	}

	if v.googleKey != "" {
		googleRes, googleErr := v.geocodeGoogle(ctx, address)
		if googleErr == nil && googleRes.matched {
			return &Result{
				NormalizedAddress: googleRes.address,
				NormalizedPhone:   normalizedPhone,
				AddressMatchScore: googleRes.score,
				PhoneMatchScore:   phoneMatchScore(normalizedPhone),
				GeoConfirmed:      true,
				Source:            "google_maps",
			}, nil
		}
		if censusErr != nil && googleErr != nil {
			return fallbackResult(normalizedAddr, normalizedPhone), nil
		}
	} else if censusErr != nil {
		return fallbackResult(normalizedAddr, normalizedPhone), nil
	}

	// Geocoders reachable but no match: basic normalization only.
	return &Result{
		NormalizedAddress: normalizedAddr,
		NormalizedPhone:   normalizedPhone,
		AddressMatchScore: 0.7,
		PhoneMatchScore:   0.7,
		GeoConfirmed:      false,
		Source:            "basic_normalization",
	}, nil
}

func fallbackResult(addr, phone string) *Result {
	return &Result{
		NormalizedAddress: addr,
		NormalizedPhone:   phone,
		AddressMatchScore: 0.6,
		PhoneMatchScore:   0.6,
		GeoConfirmed:      false,
		Source:            "fallback",
	}
}

func phoneMatchScore(normalizedPhone string) float64 {
	if normalizedPhone != "" {
		return 0.8
	}
	return 0.5
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeAddress uppercases an address and collapses runs of whitespace.
func NormalizeAddress(address string) string {
	return whitespaceRe.ReplaceAllString(strings.ToUpper(strings.TrimSpace(address)), " ")
}

// NormalizePhone reduces a US phone number to E.164. Numbers that are not
// 10 digits (or 11 with a leading 1) pass through trimmed.
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	switch d := digits.String(); {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	default:
		return trimmed
	}
}
