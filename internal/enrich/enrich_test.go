package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-health/provider-qa/internal/model"
)

func TestEchoEnricher(t *testing.T) {
	provider := model.ProviderRecord{
		ProviderID: "P00000001",
		Name:       "Dr. Sarah Smith",
		Phone:      "(555) 123-4567",
		Address:    "123 Main St",
		Specialty:  "Cardiology",
		State:      "OH",
	}

	view, err := EchoEnricher{}.Enrich(context.Background(), provider)
	require.NoError(t, err)
	assert.Equal(t, model.WebsiteView{
		Name:      "Dr. Sarah Smith",
		Phone:     "(555) 123-4567",
		Address:   "123 Main St",
		Specialty: "Cardiology",
		State:     "OH",
	}, view)
}

func TestStaticLicense(t *testing.T) {
	lic, err := StaticLicense{}.License(context.Background(), model.ProviderRecord{State: "TX"})
	require.NoError(t, err)
	assert.Equal(t, model.LicenseView{Status: "active", State: "TX"}, lic)

	lic, err = StaticLicense{}.License(context.Background(), model.ProviderRecord{})
	require.NoError(t, err)
	assert.Equal(t, "active", lic.Status)
	assert.Empty(t, lic.State)
}
