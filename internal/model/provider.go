package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ProviderRecord is the unit of work flowing through the pipeline. It is
// passed by value through each stage; the correction stage returns a
// modified copy that the orchestrator merges back.
type ProviderRecord struct {
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
	NPI        string `json:"npi,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	Specialty  string `json:"specialty,omitempty"`
	State      string `json:"state,omitempty"`
	Email      string `json:"email,omitempty"`
}

// EnsureID fills ProviderID with a deterministic content-hash identifier
// when the caller did not supply one. The same field values always produce
// the same ID, so re-submitting a record upserts rather than duplicates.
func (p *ProviderRecord) EnsureID() {
	if p.ProviderID != "" {
		return
	}
	content := strings.Join([]string{p.Name, p.NPI, p.Phone, p.Address, p.Specialty, p.State}, "|")
	sum := sha256.Sum256([]byte(content))
	p.ProviderID = fmt.Sprintf("P%08X", sum[:4])
}

// OriginalRecord is the provider data as submitted by the caller.
type OriginalRecord struct {
	Name      string `json:"name,omitempty"`
	NPI       string `json:"npi,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	State     string `json:"state,omitempty"`
}

// RegistryView is the provider as seen by the NPI registry lookup.
type RegistryView struct {
	NPI       string `json:"npi,omitempty"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	State     string `json:"state,omitempty"`
	Found     bool   `json:"found"`
}

// WebsiteView is the provider as seen by the enrichment stage.
type WebsiteView struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	State     string `json:"state,omitempty"`
}

// DocumentView is the provider as extracted from scanned documents.
// Reserved: no document source is wired yet, so it is always empty.
type DocumentView struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	Content   string `json:"content,omitempty"`
}

// LicenseView is the provider's license record.
type LicenseView struct {
	Status string `json:"status,omitempty"`
	State  string `json:"state,omitempty"`
}

// MetaContext carries impact-relevant context that is not provider data.
type MetaContext struct {
	MemberCount    int    `json:"member_count,omitempty"`
	Specialty      string `json:"specialty,omitempty"`
	RegionPriority string `json:"region_priority,omitempty"`
}

// SourceBundle is the ephemeral multi-source snapshot of one provider used
// as QA engine input. Any view may be partially populated or zero; an empty
// string means "no evidence" and must never cause a failure downstream.
type SourceBundle struct {
	Original OriginalRecord `json:"original"`
	Registry RegistryView   `json:"npi"`
	Website  WebsiteView    `json:"website"`
	Document DocumentView   `json:"pdf"`
	License  LicenseView    `json:"license_db"`
	Meta     MetaContext    `json:"meta"`
}

// OriginalFromProvider builds the as-submitted view of a provider record.
func OriginalFromProvider(p ProviderRecord) OriginalRecord {
	return OriginalRecord{
		Name:      p.Name,
		NPI:       p.NPI,
		Phone:     p.Phone,
		Address:   p.Address,
		Specialty: p.Specialty,
		State:     p.State,
	}
}
