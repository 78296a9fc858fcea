// Package qa scores a multi-source provider snapshot and produces a triage
// decision. Scoring is a pure function of the source bundle: fixed heuristic
// weights, no external state, no randomness.
package qa

import (
	"fmt"
	"strings"

	"github.com/meridian-health/provider-qa/internal/model"
)

// Additive confidence weights (capped at 100).
const (
	confRegistryNPI   = 25
	confActiveLicense = 25
	confWebsiteName   = 20
	confDocContent    = 15
	confOriginalName  = 15
)

// Additive risk weights (capped at 100).
const (
	riskInactiveLicense   = 40
	riskMissingNPI        = 30
	riskLicenseStateDiff  = 25
	riskSpecialtyChange   = 20
	riskAddressMismatch   = 15
	riskPhoneMismatch     = 10
	riskSpecialtyMismatch = 15
)

// Impact scoring: base plus member-count tiers, high-priority specialty, and
// region priority (capped at 100).
const (
	impactBase          = 30
	impactMembersLarge  = 40 // > 1000 members
	impactMembersMedium = 25 // > 500
	impactMembersSmall  = 15 // > 100
	impactSpecialty     = 20
	impactRegion        = 10
)

// highPrioritySpecialties gate the specialty impact bonus. Matched
// case-sensitively against the meta specialty exactly as provided.
var highPrioritySpecialties = map[string]bool{
	"cardiology": true,
	"oncology":   true,
	"emergency":  true,
}

// Triage thresholds, evaluated in order; the first matching rule wins.
const (
	triageHighRisk       = 60 // risk at or above always reviews
	triageMediumRisk     = 30 // paired with confidence below 50
	triageMediumRiskConf = 50
	triageLowConfidence  = 30 // confidence at or below always reviews
	triageHighImpact     = 80 // paired with confidence below 60
	triageHighImpactConf = 60
)

// crossRefFields is the evaluation (and red-flag emission) order.
var crossRefFields = []string{"name", "phone", "address", "specialty", "state"}

// Score computes element confidences, cross-reference analysis, red flags,
// conflicts, risk heuristics, the three aggregate scores, and the triage
// action for one source bundle. Empty views contribute no evidence; the
// function never fails.
func Score(bundle model.SourceBundle) model.QAResult {
	elements := elementConfidence(bundle)
	crossRef := crossReference(bundle)
	redFlags := identifyRedFlags(crossRef, bundle.License, bundle.Registry)
	conflicts := identifyConflicts(bundle)
	riskFlags := applyRiskHeuristics(bundle.License, bundle.Registry, bundle.Website)

	confidence := confidenceScore(bundle)
	risk := riskScore(riskFlags, conflicts)
	impact := impactScore(bundle.Meta)

	return model.QAResult{
		Action:          determineAction(confidence, risk, impact),
		ConfidenceScore: confidence,
		RiskScore:       risk,
		ImpactScore:     impact,
		Elements:        elements,
		CrossReference:  crossRef,
		RedFlags:        redFlags,
		Conflicts:       conflicts,
		RiskFlags:       riskFlags,
	}
}

// fourSourceValues collects a field's values from the original, registry,
// website, and document views.
func fourSourceValues(b model.SourceBundle, field string) []string {
	switch field {
	case "name":
		return []string{b.Original.Name, b.Registry.Name, b.Website.Name, b.Document.Name}
	case "phone":
		return []string{b.Original.Phone, b.Registry.Phone, b.Website.Phone, b.Document.Phone}
	case "address":
		return []string{b.Original.Address, b.Registry.Address, b.Website.Address, b.Document.Address}
	case "specialty":
		return []string{b.Original.Specialty, b.Registry.Specialty, b.Website.Specialty, b.Document.Specialty}
	default:
		return nil
	}
}

// stateValues collects the state field from its source set: the document
// view never carries a state, the license record does.
func stateValues(b model.SourceBundle) []string {
	return []string{b.Original.State, b.Registry.State, b.Website.State, b.License.State}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func distinctCount(values []string) int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}

// agree reports whether the non-empty values for a field are unanimous.
// Zero or one distinct value counts as agreement.
func agree(values []string) bool {
	return distinctCount(nonEmpty(values)) <= 1
}

func elementConfidence(b model.SourceBundle) map[string]model.ElementConfidence {
	elements := make(map[string]model.ElementConfidence, 7)

	for _, field := range []string{"name", "phone", "address", "specialty"} {
		present := nonEmpty(fourSourceValues(b, field))
		elements[field] = model.ElementConfidence{
			Score:      min(100, 25*len(present)),
			Sources:    len(present),
			Consistent: distinctCount(present) <= 1,
		}
	}

	statePresent := nonEmpty(stateValues(b))
	elements["state"] = model.ElementConfidence{
		Score:      min(100, 25*len(statePresent)),
		Sources:    len(statePresent),
		Consistent: distinctCount(statePresent) <= 1,
	}

	// NPI and license are single-source: binary and status-tiered rules.
	elements["npi"] = model.ElementConfidence{
		Score:      boolScore(b.Registry.NPI != "", 100, 0),
		Sources:    boolScore(b.Registry.NPI != "", 1, 0),
		Consistent: true,
	}
	elements["license"] = model.ElementConfidence{
		Score:      licenseScore(b.License.Status),
		Sources:    boolScore(b.License.Status != "", 1, 0),
		Consistent: true,
	}

	return elements
}

func licenseScore(status string) int {
	switch {
	case status == "active":
		return 100
	case status != "":
		return 50
	default:
		return 0
	}
}

func boolScore(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}

// crossReference records each source's raw value per field plus the match
// flag. Computed independently from element confidence for auditability.
func crossReference(b model.SourceBundle) map[string]model.CrossReference {
	analysis := make(map[string]model.CrossReference, 5)

	for _, field := range []string{"name", "phone", "address", "specialty"} {
		vals := fourSourceValues(b, field)
		analysis[field] = model.CrossReference{
			Original: vals[0],
			Registry: vals[1],
			Website:  vals[2],
			Document: vals[3],
			Match:    agree(vals),
		}
	}

	sv := stateValues(b)
	analysis["state"] = model.CrossReference{
		Original: sv[0],
		Registry: sv[1],
		Website:  sv[2],
		License:  sv[3],
		Match:    agree(sv),
	}

	return analysis
}

func identifyRedFlags(crossRef map[string]model.CrossReference, license model.LicenseView, registry model.RegistryView) []string {
	var flags []string

	for _, field := range crossRefFields {
		if !crossRef[field].Match {
			flags = append(flags, fmt.Sprintf("INCONSISTENT_%s: Multiple conflicting values found", strings.ToUpper(field)))
		}
	}

	switch {
	case license.Status == "inactive":
		flags = append(flags, "INACTIVE_LICENSE: Provider has inactive license")
	case license.Status == "":
		flags = append(flags, "MISSING_LICENSE: No license information found")
	}

	if registry.NPI == "" {
		flags = append(flags, "MISSING_NPI: No NPI number found")
	}

	state := crossRef["state"]
	states := nonEmpty([]string{state.Original, state.Registry, state.Website, state.License})
	if distinctCount(states) > 1 {
		flags = append(flags, "STATE_MISMATCH: Practice state differs from license state")
	}

	return flags
}

// identifyConflicts checks address, phone, and specialty over the original,
// registry, website, and document views only. This is a narrower source set
// than cross-reference uses for state; the asymmetry is deliberate and the
// two checks must not be unified.
func identifyConflicts(b model.SourceBundle) model.Conflicts {
	return model.Conflicts{
		AddressMismatch:   !agree(fourSourceValues(b, "address")),
		PhoneMismatch:     !agree(fourSourceValues(b, "phone")),
		SpecialtyMismatch: !agree(fourSourceValues(b, "specialty")),
	}
}

// applyRiskHeuristics derives fraud/risk flags. A missing license status
// counts as inactive-in-network, which double-counts against risk alongside
// the MISSING_LICENSE red flag; that is the intended behavior.
func applyRiskHeuristics(license model.LicenseView, registry model.RegistryView, website model.WebsiteView) model.RiskFlags {
	practiceState := website.State
	if practiceState == "" {
		practiceState = registry.State
	}

	return model.RiskFlags{
		InactiveLicenseInNetwork: license.Status != "active",
		LicenseStateMismatch:     license.State != "" && practiceState != "" && license.State != practiceState,
		MissingNPI:               registry.NPI == "",
		SpecialtyChange:          registry.Specialty != "" && website.Specialty != "" && registry.Specialty != website.Specialty,
	}
}

func confidenceScore(b model.SourceBundle) int {
	score := 0
	if b.Registry.NPI != "" {
		score += confRegistryNPI
	}
	if b.License.Status == "active" {
		score += confActiveLicense
	}
	if b.Website.Name != "" {
		score += confWebsiteName
	}
	if b.Document.Content != "" {
		score += confDocContent
	}
	if b.Original.Name != "" {
		score += confOriginalName
	}
	return min(score, 100)
}

func riskScore(flags model.RiskFlags, conflicts model.Conflicts) int {
	score := 0
	if flags.InactiveLicenseInNetwork {
		score += riskInactiveLicense
	}
	if flags.MissingNPI {
		score += riskMissingNPI
	}
	if flags.LicenseStateMismatch {
		score += riskLicenseStateDiff
	}
	if flags.SpecialtyChange {
		score += riskSpecialtyChange
	}
	if conflicts.AddressMismatch {
		score += riskAddressMismatch
	}
	if conflicts.PhoneMismatch {
		score += riskPhoneMismatch
	}
	if conflicts.SpecialtyMismatch {
		score += riskSpecialtyMismatch
	}
	return min(score, 100)
}

func impactScore(meta model.MetaContext) int {
	score := impactBase

	switch {
	case meta.MemberCount > 1000:
		score += impactMembersLarge
	case meta.MemberCount > 500:
		score += impactMembersMedium
	case meta.MemberCount > 100:
		score += impactMembersSmall
	}

	if highPrioritySpecialties[meta.Specialty] {
		score += impactSpecialty
	}
	if meta.RegionPriority == "high" {
		score += impactRegion
	}
	return min(score, 100)
}

// determineAction applies the ordered triage rules; the default branch makes
// the rules exhaustive.
func determineAction(confidence, risk, impact int) model.TriageAction {
	if risk >= triageHighRisk {
		return model.ActionManualReview
	}
	if risk >= triageMediumRisk && confidence < triageMediumRiskConf {
		return model.ActionManualReview
	}
	if confidence <= triageLowConfidence {
		return model.ActionManualReview
	}
	if impact >= triageHighImpact && confidence < triageHighImpactConf {
		return model.ActionManualReview
	}
	return model.ActionAutoResolve
}
