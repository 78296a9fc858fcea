// Package correct applies rule-based fixes to provider contact fields:
// phone standardization, address whitespace cleanup, and specialty
// normalization against a controlled vocabulary. A fix is applied only when
// its confidence clears the configured threshold and the value changed.
package correct

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/model"
)

// Statistics summarizes the corrections applied across a corrector's lifetime.
type Statistics struct {
	TotalProvidersCorrected int            `json:"total_providers_corrected"`
	TotalFieldsCorrected    int            `json:"total_fields_corrected"`
	CorrectionsByField      map[string]int `json:"corrections_by_field"`
	AvgCorrectionsPerProv   float64        `json:"average_corrections_per_provider"`
}

// Corrector applies field corrections above a confidence threshold.
type Corrector struct {
	threshold  float64
	vocabulary *Vocabulary

	mu      sync.Mutex
	history []model.CorrectionResult
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithThreshold overrides the default 0.9 confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.threshold = threshold
	}
}

// WithVocabulary overrides the built-in specialty vocabulary.
func WithVocabulary(v *Vocabulary) Option {
	return func(c *Corrector) {
		c.vocabulary = v
	}
}

// New creates a Corrector with the given options.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		threshold:  0.9,
		vocabulary: DefaultVocabulary(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Process corrects one provider record, returning the rewritten record and
// the ledger of applied corrections. The input record is not mutated.
func (c *Corrector) Process(provider model.ProviderRecord) model.CorrectionResult {
	now := time.Now().UTC()
	var corrections []model.Correction

	apply := func(field, before string, after string, confidence float64, source string) string {
		if after == "" || confidence < c.threshold || after == before {
			return before
		}
		corrections = append(corrections, model.Correction{
			Field:      field,
			Before:     before,
			After:      after,
			Confidence: confidence,
			Source:     source,
			Timestamp:  now,
		})
		return after
	}

	if provider.Phone != "" {
		after, confidence, source := CorrectPhone(provider.Phone)
		provider.Phone = apply("phone", provider.Phone, after, confidence, source)
	}
	if provider.Address != "" {
		after, confidence, source := CorrectAddress(provider.Address)
		provider.Address = apply("address", provider.Address, after, confidence, source)
	}
	if provider.Specialty != "" {
		after, confidence, source := c.vocabulary.Normalize(provider.Specialty)
		provider.Specialty = apply("specialty", provider.Specialty, after, confidence, source)
	}

	result := model.CorrectionResult{
		Provider:    provider,
		Corrections: corrections,
	}

	if len(corrections) > 0 {
		c.mu.Lock()
		c.history = append(c.history, result)
		c.mu.Unlock()
		zap.L().Info("auto-corrected provider fields",
			zap.String("provider_id", provider.ProviderID),
			zap.Int("corrections", len(corrections)),
		)
	}

	return result
}

// History returns applied-correction records, optionally filtered by provider.
func (c *Corrector) History(providerID string) []model.CorrectionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if providerID == "" {
		out := make([]model.CorrectionResult, len(c.history))
		copy(out, c.history)
		return out
	}
	var out []model.CorrectionResult
	for _, r := range c.history {
		if r.Provider.ProviderID == providerID {
			out = append(out, r)
		}
	}
	return out
}

// Stats aggregates the correction ledger.
func (c *Corrector) Stats() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{CorrectionsByField: make(map[string]int)}
	stats.TotalProvidersCorrected = len(c.history)
	for _, r := range c.history {
		stats.TotalFieldsCorrected += len(r.Corrections)
		for _, corr := range r.Corrections {
			stats.CorrectionsByField[corr.Field]++
		}
	}
	if stats.TotalProvidersCorrected > 0 {
		stats.AvgCorrectionsPerProv = float64(stats.TotalFieldsCorrected) / float64(stats.TotalProvidersCorrected)
	}
	return stats
}

// CorrectPhone standardizes a US phone number to (XXX) XXX-XXXX. Ten digits
// or eleven with a leading 1 are accepted; anything else is rejected.
func CorrectPhone(phone string) (value string, confidence float64, source string) {
	if phone == "" {
		return "", 0.0, "Empty phone number"
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	switch d := digits.String(); {
	case len(d) == 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:]), 0.95, "Standardized US format"
	case len(d) == 11 && d[0] == '1':
		return fmt.Sprintf("(%s) %s-%s", d[1:4], d[4:7], d[7:]), 0.95, "Standardized US format (removed country code)"
	default:
		return "", 0.0, "Invalid phone number length"
	}
}

// CorrectAddress collapses internal whitespace. Addresses under five
// characters carry too little signal to fix.
func CorrectAddress(address string) (value string, confidence float64, source string) {
	if len(strings.TrimSpace(address)) < 5 {
		return "", 0.0, "Address too short"
	}
	return strings.Join(strings.Fields(address), " "), 0.7, "Basic standardization"
}
