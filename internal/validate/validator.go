// Package validate scores each contact field of a provider record against
// the NPI registry and a geocoder, tagging fields by confidence band.
package validate

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/model"
	"github.com/meridian-health/provider-qa/pkg/geocode"
	"github.com/meridian-health/provider-qa/pkg/npi"
)

// Validator validates provider contact data against external sources.
type Validator struct {
	registry npi.Client
	geocoder geocode.Client
}

// New creates a Validator using the given lookup clients.
func New(registry npi.Client, geocoder geocode.Client) *Validator {
	return &Validator{registry: registry, geocoder: geocoder}
}

// Validate runs the field-by-field validation for one provider. The returned
// result carries the structured registry record so later stages can
// cross-reference it without a second lookup.
func (v *Validator) Validate(ctx context.Context, provider model.ProviderRecord) (*model.ValidationResult, error) {
	if provider.ProviderID == "" {
		return nil, eris.New("validate: provider id is required")
	}

	start := time.Now()

	registryRec, err := v.registry.Lookup(ctx, npi.Query{
		NPI:       provider.NPI,
		Name:      provider.Name,
		Specialty: provider.Specialty,
		Address:   provider.Address,
		State:     provider.State,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "validate: npi lookup for %s", provider.ProviderID)
	}

	geo, err := v.geocoder.Verify(ctx, provider.Address, provider.Phone)
	if err != nil {
		return nil, eris.Wrapf(err, "validate: address lookup for %s", provider.ProviderID)
	}

	now := time.Now().UTC()
	fields := make(map[string]model.FieldResult, 6)

	// Name: exact (case-insensitive) registry agreement confirms it.
	nameConf := 0.75
	if strings.EqualFold(provider.Name, registryRec.Name) {
		nameConf = 1.0
	}
	fields["name"] = model.FieldResult{
		Value:        provider.Name,
		Confidence:   nameConf,
		Tag:          model.TagFromConfidence(nameConf, provider.Name),
		Sources:      []string{"input", "npi_registry"},
		LastVerified: now,
	}

	// NPI: binary on registry presence.
	npiConf := 0.3
	npiTag := model.TagSuspect
	if registryRec.Found {
		npiConf = 0.95
		npiTag = model.TagConfirmed
	}
	fields["npi"] = model.FieldResult{
		Value:        registryRec.NPI,
		Confidence:   npiConf,
		Tag:          npiTag,
		Sources:      []string{"npi_registry"},
		LastVerified: now,
	}

	// Specialty: compared against the registry's primary taxonomy.
	specConf := 0.8
	if strings.EqualFold(provider.Specialty, registryRec.PrimaryTaxonomy) {
		specConf = 1.0
	}
	fields["specialty"] = model.FieldResult{
		Value:        provider.Specialty,
		Confidence:   specConf,
		Tag:          model.TagFromConfidence(specConf, provider.Specialty),
		Sources:      []string{"input", "npi_registry"},
		LastVerified: now,
	}

	// Address: adopt the normalized form only on a strong geocoder match.
	addrValue := provider.Address
	if geo.AddressMatchScore >= 0.8 {
		addrValue = geo.NormalizedAddress
	}
	fields["address"] = model.FieldResult{
		Value:        addrValue,
		Confidence:   geo.AddressMatchScore,
		Tag:          model.TagFromConfidence(geo.AddressMatchScore, provider.Address),
		Sources:      []string{"input", "google_maps"},
		LastVerified: now,
	}

	// Phone: average of format plausibility and geocoder match.
	phoneFormatConf := 0.5
	if strings.HasPrefix(provider.Phone, "+1") {
		phoneFormatConf = 0.9
	}
	phoneConf := (phoneFormatConf + geo.PhoneMatchScore) / 2
	phoneValue := provider.Phone
	if phoneConf >= 0.8 {
		phoneValue = geo.NormalizedPhone
	}
	fields["phone"] = model.FieldResult{
		Value:        phoneValue,
		Confidence:   phoneConf,
		Tag:          model.TagFromConfidence(phoneConf, provider.Phone),
		Sources:      []string{"input", "google_maps"},
		LastVerified: now,
	}

	// Email: optional, format check only.
	if provider.Email != "" {
		emailConf := emailConfidence(provider.Email)
		fields["email"] = model.FieldResult{
			Value:        provider.Email,
			Confidence:   emailConf,
			Tag:          model.TagFromConfidence(emailConf, provider.Email),
			Sources:      []string{"input"},
			LastVerified: now,
		}
	}

	var sum float64
	for _, f := range fields {
		sum += f.Confidence
	}
	providerConfidence := sum / float64(len(fields))

	result := &model.ValidationResult{
		ProviderID:         provider.ProviderID,
		Fields:             fields,
		ProviderConfidence: providerConfidence,
		Registry: model.RegistryView{
			NPI:       registryRec.NPI,
			Name:      registryRec.Name,
			Address:   registryRec.PracticeAddress,
			Specialty: registryRec.PrimaryTaxonomy,
			State:     registryRec.LicenseState,
			Found:     registryRec.Found,
		},
		ValidationTime: now,
	}

	zap.L().Debug("validated provider",
		zap.String("provider_id", provider.ProviderID),
		zap.Float64("confidence", providerConfidence),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// emailConfidence scores a bare email format check: 0.9 with a dotted
// domain, 0.4 with an @ but no dotted domain, 0.0 otherwise.
func emailConfidence(email string) float64 {
	if email == "" || !strings.Contains(email, "@") {
		return 0.0
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if strings.Contains(domain, ".") {
		return 0.9
	}
	return 0.4
}
