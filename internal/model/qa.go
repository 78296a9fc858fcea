package model

// TriageAction is the binary routing decision produced by the QA engine.
type TriageAction string

const (
	ActionAutoResolve  TriageAction = "auto_resolve"
	ActionManualReview TriageAction = "manual_review"
)

// ElementConfidence records per-field corroboration across sources.
// Score is 0-100; Consistent is true when all non-empty values agree.
type ElementConfidence struct {
	Score      int  `json:"score"`
	Sources    int  `json:"sources"`
	Consistent bool `json:"consistent"`
}

// CrossReference holds each source's raw value for one field plus the match
// flag. License is populated only for the state field; Document only for the
// four-source fields.
type CrossReference struct {
	Original string `json:"original,omitempty"`
	Registry string `json:"npi,omitempty"`
	Website  string `json:"website,omitempty"`
	Document string `json:"pdf,omitempty"`
	License  string `json:"license,omitempty"`
	Match    bool   `json:"match"`
}

// RiskFlags are the fraud/risk heuristics derived from the license, registry,
// and website views.
type RiskFlags struct {
	InactiveLicenseInNetwork bool `json:"inactive_license_in_network"`
	LicenseStateMismatch     bool `json:"license_state_mismatch"`
	MissingNPI               bool `json:"missing_npi"`
	SpecialtyChange          bool `json:"specialty_change"`
}

// Active returns the names of the flags that are set, in a fixed order.
func (f RiskFlags) Active() []string {
	var names []string
	if f.InactiveLicenseInNetwork {
		names = append(names, "inactive_license_in_network")
	}
	if f.LicenseStateMismatch {
		names = append(names, "license_state_mismatch")
	}
	if f.MissingNPI {
		names = append(names, "missing_npi")
	}
	if f.SpecialtyChange {
		names = append(names, "specialty_change")
	}
	return names
}

// Conflicts mark fields with more than one distinct non-empty value across
// the original, registry, website, and document views.
type Conflicts struct {
	AddressMismatch   bool `json:"address_mismatch"`
	PhoneMismatch     bool `json:"phone_mismatch"`
	SpecialtyMismatch bool `json:"specialty_mismatch"`
}

// Active returns the names of the conflicts that are set, in a fixed order.
func (c Conflicts) Active() []string {
	var names []string
	if c.AddressMismatch {
		names = append(names, "address_mismatch")
	}
	if c.PhoneMismatch {
		names = append(names, "phone_mismatch")
	}
	if c.SpecialtyMismatch {
		names = append(names, "specialty_mismatch")
	}
	return names
}

// QAResult is the scoring engine's output for one provider bundle. It is
// computed fresh per call and never mutated after construction.
type QAResult struct {
	Action          TriageAction                 `json:"action"`
	ConfidenceScore int                          `json:"confidence_score"`
	RiskScore       int                          `json:"risk_score"`
	ImpactScore     int                          `json:"impact_score"`
	Elements        map[string]ElementConfidence `json:"element_confidence"`
	CrossReference  map[string]CrossReference    `json:"cross_reference_analysis"`
	RedFlags        []string                     `json:"red_flags"`
	Conflicts       Conflicts                    `json:"conflicts"`
	RiskFlags       RiskFlags                    `json:"risk_flags"`
}
