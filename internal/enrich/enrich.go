// Package enrich supplies the secondary evidence sources for a provider:
// a website-derived view and a license record. Both are pluggable; the
// defaults echo submitted data so the pipeline runs without external feeds.
package enrich

import (
	"context"

	"github.com/meridian-health/provider-qa/internal/model"
)

// Enricher produces the website view of a provider.
type Enricher interface {
	Enrich(ctx context.Context, provider model.ProviderRecord) (model.WebsiteView, error)
}

// LicenseSource produces the license record for a provider.
type LicenseSource interface {
	License(ctx context.Context, provider model.ProviderRecord) (model.LicenseView, error)
}

// EchoEnricher mirrors the submitted record as the website view. It stands
// in until a real practice-website scraper is wired.
type EchoEnricher struct{}

func (EchoEnricher) Enrich(_ context.Context, provider model.ProviderRecord) (model.WebsiteView, error) {
	return model.WebsiteView{
		Name:      provider.Name,
		Phone:     provider.Phone,
		Address:   provider.Address,
		Specialty: provider.Specialty,
		State:     provider.State,
	}, nil
}

// StaticLicense reports every provider as actively licensed in their
// submitted practice state. It stands in until a state board feed is wired.
type StaticLicense struct{}

func (StaticLicense) License(_ context.Context, provider model.ProviderRecord) (model.LicenseView, error) {
	return model.LicenseView{
		Status: "active",
		State:  provider.State,
	}, nil
}
