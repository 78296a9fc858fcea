package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-health/provider-qa/internal/model"
)

func fullyConsistentBundle() model.SourceBundle {
	return model.SourceBundle{
		Original: model.OriginalRecord{
			Name: "Dr. Ana Ruiz", Phone: "(555) 123-4567", Address: "12 Oak St",
			Specialty: "Cardiology", State: "CA",
		},
		Registry: model.RegistryView{
			NPI: "1234567890", Name: "Dr. Ana Ruiz", Phone: "(555) 123-4567",
			Address: "12 Oak St", Specialty: "Cardiology", State: "CA", Found: true,
		},
		Website: model.WebsiteView{
			Name: "Dr. Ana Ruiz", Specialty: "Cardiology", State: "CA",
		},
		License: model.LicenseView{Status: "active", State: "CA"},
		Meta:    model.MetaContext{MemberCount: 500, Specialty: "Cardiology"},
	}
}

func TestScore_Deterministic(t *testing.T) {
	bundle := fullyConsistentBundle()
	first := Score(bundle)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(bundle))
	}
}

func TestScore_EmptyBundleDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		result := Score(model.SourceBundle{})
		assert.Equal(t, model.ActionManualReview, result.Action)
	})
}

func TestConfidenceScore_AllSignals(t *testing.T) {
	// npi 25 + active license 25 + website name 20 + pdf 0 + original name 15 = 85
	bundle := fullyConsistentBundle()
	assert.Equal(t, 85, confidenceScore(bundle))
}

func TestConfidenceScore_WithDocumentCapped(t *testing.T) {
	bundle := fullyConsistentBundle()
	bundle.Document.Content = "scanned roster page"
	// 25+25+20+15+15 = 100, already at the cap
	assert.Equal(t, 100, confidenceScore(bundle))
}

func TestConfidenceScore_InactiveLicenseGetsNoCredit(t *testing.T) {
	bundle := fullyConsistentBundle()
	bundle.License.Status = "inactive"
	assert.Equal(t, 60, confidenceScore(bundle))
}

func TestRiskScore_MissingLicenseAndNPI(t *testing.T) {
	// License status absent counts as inactive (40) plus missing NPI (30) = 70.
	flags := applyRiskHeuristics(model.LicenseView{}, model.RegistryView{}, model.WebsiteView{})
	assert.True(t, flags.InactiveLicenseInNetwork)
	assert.True(t, flags.MissingNPI)
	assert.Equal(t, 70, riskScore(flags, model.Conflicts{}))
}

func TestRiskScore_Capped(t *testing.T) {
	flags := model.RiskFlags{
		InactiveLicenseInNetwork: true,
		LicenseStateMismatch:     true,
		MissingNPI:               true,
		SpecialtyChange:          true,
	}
	conflicts := model.Conflicts{AddressMismatch: true, PhoneMismatch: true, SpecialtyMismatch: true}
	// 40+30+25+20+15+10+15 = 155, capped at 100
	assert.Equal(t, 100, riskScore(flags, conflicts))
}

func TestRiskFlags_LicenseStateMismatch(t *testing.T) {
	tests := []struct {
		name     string
		license  model.LicenseView
		registry model.RegistryView
		website  model.WebsiteView
		want     bool
	}{
		{
			name:    "website state differs from license",
			license: model.LicenseView{Status: "active", State: "CA"},
			website: model.WebsiteView{State: "NY"},
			want:    true,
		},
		{
			name:     "registry state used when website absent",
			license:  model.LicenseView{Status: "active", State: "CA"},
			registry: model.RegistryView{State: "TX"},
			want:     true,
		},
		{
			name:     "website state takes precedence over registry",
			license:  model.LicenseView{Status: "active", State: "CA"},
			registry: model.RegistryView{State: "TX"},
			website:  model.WebsiteView{State: "CA"},
			want:     false,
		},
		{
			name:    "no license state means no mismatch",
			website: model.WebsiteView{State: "NY"},
			want:    false,
		},
		{
			name:    "no practice state means no mismatch",
			license: model.LicenseView{Status: "active", State: "CA"},
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := applyRiskHeuristics(tt.license, tt.registry, tt.website)
			assert.Equal(t, tt.want, flags.LicenseStateMismatch)
		})
	}
}

func TestRiskFlags_SpecialtyChange(t *testing.T) {
	flags := applyRiskHeuristics(
		model.LicenseView{Status: "active"},
		model.RegistryView{NPI: "1", Specialty: "Cardiology"},
		model.WebsiteView{Specialty: "Dermatology"},
	)
	assert.True(t, flags.SpecialtyChange)

	// One side missing is not a change.
	flags = applyRiskHeuristics(
		model.LicenseView{Status: "active"},
		model.RegistryView{NPI: "1", Specialty: "Cardiology"},
		model.WebsiteView{},
	)
	assert.False(t, flags.SpecialtyChange)
}

func TestImpactScore_Tiers(t *testing.T) {
	tests := []struct {
		name string
		meta model.MetaContext
		want int
	}{
		{"base only", model.MetaContext{}, 30},
		{"small membership", model.MetaContext{MemberCount: 150}, 45},
		{"medium membership", model.MetaContext{MemberCount: 600}, 55},
		{"large membership", model.MetaContext{MemberCount: 1500}, 70},
		{"boundary 100 gets no bonus", model.MetaContext{MemberCount: 100}, 30},
		{"boundary 500 stays small tier", model.MetaContext{MemberCount: 500}, 45},
		{"high priority specialty", model.MetaContext{Specialty: "oncology"}, 50},
		{"specialty match is case sensitive", model.MetaContext{Specialty: "Oncology"}, 30},
		{"high region priority", model.MetaContext{RegionPriority: "high"}, 40},
		{"everything capped at 100", model.MetaContext{MemberCount: 1500, Specialty: "cardiology", RegionPriority: "high"}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, impactScore(tt.meta))
		})
	}
}

func TestDetermineAction_OrderedRules(t *testing.T) {
	tests := []struct {
		name                     string
		confidence, risk, impact int
		want                     model.TriageAction
	}{
		{"high risk always reviews", 100, 60, 0, model.ActionManualReview},
		{"medium risk with low confidence", 49, 30, 0, model.ActionManualReview},
		{"medium risk with enough confidence passes", 50, 30, 0, model.ActionAutoResolve},
		{"very low confidence", 30, 0, 0, model.ActionManualReview},
		{"confidence just above floor passes", 31, 0, 0, model.ActionAutoResolve},
		{"high impact with uncertainty", 59, 0, 80, model.ActionManualReview},
		{"high impact with confidence passes", 60, 0, 80, model.ActionAutoResolve},
		{"clean record resolves", 85, 0, 45, model.ActionAutoResolve},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineAction(tt.confidence, tt.risk, tt.impact))
		})
	}
}

func TestElementConfidence_ThreeAgreeingSources(t *testing.T) {
	b := model.SourceBundle{
		Original: model.OriginalRecord{Phone: "(555) 111-2222"},
		Registry: model.RegistryView{Phone: "(555) 111-2222"},
		Website:  model.WebsiteView{Phone: "(555) 111-2222"},
	}
	elements := elementConfidence(b)
	assert.Equal(t, 75, elements["phone"].Score)
	assert.Equal(t, 3, elements["phone"].Sources)
	assert.True(t, elements["phone"].Consistent)

	crossRef := crossReference(b)
	assert.True(t, crossRef["phone"].Match)
}

func TestElementConfidence_DisagreementBreaksConsistency(t *testing.T) {
	b := model.SourceBundle{
		Original: model.OriginalRecord{Address: "12 Oak St"},
		Registry: model.RegistryView{Address: "12 Oak Street"},
	}
	elements := elementConfidence(b)
	assert.Equal(t, 50, elements["address"].Score)
	assert.False(t, elements["address"].Consistent)
}

func TestElementConfidence_NoEvidenceIsConsistent(t *testing.T) {
	elements := elementConfidence(model.SourceBundle{})
	assert.Equal(t, 0, elements["name"].Score)
	assert.Zero(t, elements["name"].Sources)
	assert.True(t, elements["name"].Consistent)
}

func TestElementConfidence_LicenseTiers(t *testing.T) {
	active := elementConfidence(model.SourceBundle{License: model.LicenseView{Status: "active"}})
	assert.Equal(t, 100, active["license"].Score)

	inactive := elementConfidence(model.SourceBundle{License: model.LicenseView{Status: "inactive"}})
	assert.Equal(t, 50, inactive["license"].Score)
	assert.Equal(t, 1, inactive["license"].Sources)

	missing := elementConfidence(model.SourceBundle{})
	assert.Equal(t, 0, missing["license"].Score)
	assert.Zero(t, missing["license"].Sources)
}

func TestElementConfidence_StateUsesLicenseNotDocument(t *testing.T) {
	b := model.SourceBundle{
		Document: model.DocumentView{Name: "Dr. X"},
		License:  model.LicenseView{State: "CA"},
	}
	elements := elementConfidence(b)
	assert.Equal(t, 1, elements["state"].Sources)
}

func TestRedFlags_InconsistentField(t *testing.T) {
	b := fullyConsistentBundle()
	b.Website.Phone = "(555) 999-0000"
	result := Score(b)
	assert.Contains(t, result.RedFlags, "INCONSISTENT_PHONE: Multiple conflicting values found")
	assert.False(t, result.CrossReference["phone"].Match)
}

func TestRedFlags_LicenseStates(t *testing.T) {
	b := fullyConsistentBundle()

	b.License.Status = "inactive"
	assert.Contains(t, Score(b).RedFlags, "INACTIVE_LICENSE: Provider has inactive license")

	b.License.Status = ""
	assert.Contains(t, Score(b).RedFlags, "MISSING_LICENSE: No license information found")

	// A non-active, non-empty status raises neither license red flag but
	// still counts as inactive-in-network for risk.
	b.License.Status = "expired"
	result := Score(b)
	assert.NotContains(t, result.RedFlags, "INACTIVE_LICENSE: Provider has inactive license")
	assert.NotContains(t, result.RedFlags, "MISSING_LICENSE: No license information found")
	assert.True(t, result.RiskFlags.InactiveLicenseInNetwork)
}

func TestRedFlags_MissingNPIAndStateMismatch(t *testing.T) {
	b := fullyConsistentBundle()
	b.Registry.NPI = ""
	b.License.State = "NY"

	result := Score(b)
	assert.Contains(t, result.RedFlags, "MISSING_NPI: No NPI number found")
	assert.Contains(t, result.RedFlags, "STATE_MISMATCH: Practice state differs from license state")
}

func TestConflicts_FourSourceCheckIgnoresLicense(t *testing.T) {
	// License state disagreement shows in cross-reference/state but the
	// conflicts map only looks at original/registry/website/document.
	b := fullyConsistentBundle()
	b.License.State = "NY"
	result := Score(b)
	assert.False(t, result.Conflicts.AddressMismatch)
	assert.False(t, result.CrossReference["state"].Match)
}

func TestConflicts_Mismatches(t *testing.T) {
	b := fullyConsistentBundle()
	b.Website.Address = "99 Pine Ave"
	b.Document.Specialty = "Dermatology"
	result := Score(b)
	assert.True(t, result.Conflicts.AddressMismatch)
	assert.True(t, result.Conflicts.SpecialtyMismatch)
	assert.False(t, result.Conflicts.PhoneMismatch)
}

func TestScore_Bounds(t *testing.T) {
	bundles := []model.SourceBundle{
		{},
		fullyConsistentBundle(),
		{
			Original: model.OriginalRecord{Name: "A", Phone: "1", Address: "x", Specialty: "s", State: "CA"},
			Registry: model.RegistryView{Name: "B", Phone: "2", Address: "y", Specialty: "t", State: "NY"},
			Website:  model.WebsiteView{Name: "C", Phone: "3", Address: "z", Specialty: "u", State: "TX"},
			Document: model.DocumentView{Name: "D", Phone: "4", Address: "w", Specialty: "v", Content: "pdf"},
			License:  model.LicenseView{Status: "inactive", State: "FL"},
			Meta:     model.MetaContext{MemberCount: 99999, Specialty: "emergency", RegionPriority: "high"},
		},
	}
	for _, b := range bundles {
		result := Score(b)
		assert.GreaterOrEqual(t, result.ConfidenceScore, 0)
		assert.LessOrEqual(t, result.ConfidenceScore, 100)
		assert.GreaterOrEqual(t, result.RiskScore, 0)
		assert.LessOrEqual(t, result.RiskScore, 100)
		assert.GreaterOrEqual(t, result.ImpactScore, 0)
		assert.LessOrEqual(t, result.ImpactScore, 100)
		assert.Contains(t, []model.TriageAction{model.ActionAutoResolve, model.ActionManualReview}, result.Action)
	}
}

func TestScore_ConsistentImpliesAtMostOneDistinctValue(t *testing.T) {
	b := fullyConsistentBundle()
	b.Document = model.DocumentView{Name: "Dr. A. Ruiz", Phone: "(555) 123-4567"}
	result := Score(b)

	// Name now has two distinct spellings across four sources.
	assert.False(t, result.Elements["name"].Consistent)
	// Phone stays unanimous.
	assert.True(t, result.Elements["phone"].Consistent)
}

func TestScore_MissingEverythingRoutesToReview(t *testing.T) {
	// No license status and no NPI: risk 40+30 = 70 trips the high-risk rule.
	result := Score(model.SourceBundle{Original: model.OriginalRecord{Name: "Dr. Lee"}})
	assert.Equal(t, 70, result.RiskScore)
	assert.Equal(t, model.ActionManualReview, result.Action)
}
