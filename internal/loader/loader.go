// Package loader reads provider batches from CSV and XLSX files. Columns are
// resolved by header name, so column order does not matter.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/meridian-health/provider-qa/internal/model"
)

// recognized header names, lowercased
const (
	colProviderID = "provider_id"
	colName       = "name"
	colNPI        = "npi"
	colPhone      = "phone"
	colAddress    = "address"
	colSpecialty  = "specialty"
	colState      = "state"
	colEmail      = "email"
)

// Load reads a provider batch from path, dispatching on the file extension.
func Load(path string) ([]model.ProviderRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("loader: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadCSV reads providers from a CSV file with a header row.
func LoadCSV(path string) ([]model.ProviderRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv header")
	}
	idx := headerIndex(header)
	if _, ok := idx[colName]; !ok {
		return nil, eris.Errorf("loader: %s has no name column", path)
	}

	var providers []model.ProviderRecord
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "loader: read csv row")
		}
		if p, ok := rowToProvider(record, idx); ok {
			providers = append(providers, p)
		}
	}
	return providers, nil
}

// LoadXLSX reads providers from the first sheet of an XLSX file with a
// header row.
func LoadXLSX(path string) ([]model.ProviderRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("loader: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("loader: %s first sheet is empty", path)
	}

	idx := headerIndex(rowToStrings(sheet.Rows[0]))
	if _, ok := idx[colName]; !ok {
		return nil, eris.Errorf("loader: %s has no name column", path)
	}

	var providers []model.ProviderRecord
	for _, row := range sheet.Rows[1:] {
		if p, ok := rowToProvider(rowToStrings(row), idx); ok {
			providers = append(providers, p)
		}
	}
	return providers, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// rowToProvider maps one row onto a ProviderRecord. Rows with no name are
// skipped (blank trailing rows are common in exported spreadsheets).
func rowToProvider(record []string, idx map[string]int) (model.ProviderRecord, bool) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	p := model.ProviderRecord{
		ProviderID: get(colProviderID),
		Name:       get(colName),
		NPI:        get(colNPI),
		Phone:      get(colPhone),
		Address:    get(colAddress),
		Specialty:  get(colSpecialty),
		State:      get(colState),
		Email:      get(colEmail),
	}
	if p.Name == "" {
		return model.ProviderRecord{}, false
	}
	p.EnsureID()
	return p, true
}
