package model

import "time"

// FieldTag classifies a validated field by confidence band.
type FieldTag string

const (
	TagConfirmed FieldTag = "confirmed" // confidence >= 0.90
	TagUpdated   FieldTag = "updated"   // confidence >= 0.70
	TagSuspect   FieldTag = "suspect"   // below 0.70
	TagMissing   FieldTag = "missing"   // empty value, overrides confidence
)

// TagFromConfidence maps a confidence score to a tag. An empty value is
// always tagged missing regardless of confidence.
func TagFromConfidence(confidence float64, value string) FieldTag {
	if value == "" {
		return TagMissing
	}
	switch {
	case confidence >= 0.90:
		return TagConfirmed
	case confidence >= 0.70:
		return TagUpdated
	default:
		return TagSuspect
	}
}

// FieldResult is the per-field output of the validation stage.
type FieldResult struct {
	Value        string    `json:"value"`
	Confidence   float64   `json:"confidence"`
	Tag          FieldTag  `json:"tag"`
	Sources      []string  `json:"sources"`
	LastVerified time.Time `json:"last_verified"`
}

// ValidationResult is the validation stage output for one provider.
// Registry carries the structured NPI lookup record so the QA stage can
// cross-reference against it without re-querying.
type ValidationResult struct {
	ProviderID         string                 `json:"provider_id"`
	Fields             map[string]FieldResult `json:"fields"`
	ProviderConfidence float64                `json:"provider_confidence"`
	Registry           RegistryView           `json:"registry"`
	ValidationTime     time.Time              `json:"validation_time"`
}

// Correction records one applied field rewrite.
type Correction struct {
	Field      string    `json:"field"`
	Before     string    `json:"before"`
	After      string    `json:"after"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// CorrectionResult is the correction stage output: the (possibly rewritten)
// provider plus the ledger of applied corrections.
type CorrectionResult struct {
	Provider          ProviderRecord `json:"provider_data"`
	Corrections       []Correction   `json:"corrections"`
	NeedsManualReview bool           `json:"needs_manual_review"`
}
