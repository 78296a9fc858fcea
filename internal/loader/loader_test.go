package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, `provider_id,name,npi,phone,address,specialty,state,email
P00000001,Dr. Sarah Smith,1234567890,555-123-4567,"123 Main St, Columbus, OH",Cardiology,OH,s.smith@clinic.org
,Dr. John Doe,,555-987-6543,456 Oak Ave,Pediatrics,TX,
`)

	providers, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, providers, 2)

	assert.Equal(t, "P00000001", providers[0].ProviderID)
	assert.Equal(t, "Dr. Sarah Smith", providers[0].Name)
	assert.Equal(t, "1234567890", providers[0].NPI)
	assert.Equal(t, "123 Main St, Columbus, OH", providers[0].Address)
	assert.Equal(t, "s.smith@clinic.org", providers[0].Email)

	// missing provider_id gets a deterministic hash ID
	assert.NotEmpty(t, providers[1].ProviderID)
	assert.Regexp(t, `^P[0-9A-F]{8}$`, providers[1].ProviderID)
}

func TestLoadCSV_ColumnOrderIrrelevant(t *testing.T) {
	path := writeCSV(t, `state,name,phone
OH,Dr. Sarah Smith,555-123-4567
`)

	providers, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "OH", providers[0].State)
	assert.Equal(t, "555-123-4567", providers[0].Phone)
	assert.Empty(t, providers[0].NPI)
}

func TestLoadCSV_SkipsBlankRows(t *testing.T) {
	path := writeCSV(t, `name,state
Dr. Sarah Smith,OH
,
`)

	providers, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, providers, 1)
}

func TestLoadCSV_MissingNameColumn(t *testing.T) {
	path := writeCSV(t, "npi,phone\n123,555\n")

	_, err := LoadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name column")
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Providers")
	require.NoError(t, err)
	for _, row := range [][]string{
		{"name", "npi", "specialty", "state"},
		{"Dr. Sarah Smith", "1234567890", "Cardiology", "OH"},
		{"Dr. John Doe", "", "Pediatrics", "TX"},
		{"", "", "", ""},
	} {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	require.NoError(t, f.Save(path))

	providers, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "Dr. Sarah Smith", providers[0].Name)
	assert.Equal(t, "Cardiology", providers[0].Specialty)
	assert.Equal(t, "TX", providers[1].State)
	assert.NotEmpty(t, providers[0].ProviderID)
}

func TestLoad_Dispatch(t *testing.T) {
	path := writeCSV(t, "name\nDr. Sarah Smith\n")

	providers, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, providers, 1)

	_, err = Load("providers.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
