// core/catalog_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

// Catalog files are JSON arrays of row objects keyed by the published
// column names; the schema decides which columns matter. A column that
// is absent or null on a row loads as NaN and is repaired (or treated
// as unknown) downstream, matching how masked values behave in the
// FITS originals.

// LoadCatalog reads catalog rows from r and builds a SourceTable for
// the given schema. Rows lacking a name or a position are rejected; a
// missing flux column loads as NaN.
func LoadCatalog(schema *model.CatalogSchema, r io.Reader) (*model.SourceTable, error) {
	var rows []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("LoadCatalog(%s): decode failed: %w", schema.Key, err)
	}

	table := &model.SourceTable{Schema: schema, Sources: make([]model.Source, 0, len(rows))}
	for i, row := range rows {
		name, ok := stringColumn(row, schema.NameColumn)
		if !ok || name == "" {
			return nil, fmt.Errorf("LoadCatalog(%s): row %d: missing %s", schema.Key, i, schema.NameColumn)
		}
		ra := floatColumn(row, schema.RAColumn)
		dec := floatColumn(row, schema.DecColumn)
		pos := model.SkyCoord{RADeg: ra, DecDeg: dec}
		if !pos.IsFinite() {
			return nil, fmt.Errorf("LoadCatalog(%s): row %d (%s): missing position", schema.Key, i, name)
		}

		src := model.Source{
			Name:            name,
			Position:        pos,
			TotalFlux:       floatColumn(row, schema.FluxColumn),
			FracVariability: math.NaN(),
			BandFlux:        make([]float64, len(schema.BandColumns)),
			BandFluxErr:     make([]float64, len(schema.BandColumns)),
		}
		if schema.FracVarColumn != "" {
			src.FracVariability = floatColumn(row, schema.FracVarColumn)
		}
		for b, col := range schema.BandColumns {
			src.BandFlux[b] = floatColumn(row, col)
			lo := floatColumn(row, schema.BandErrLower[b])
			hi := floatColumn(row, schema.BandErrUpper[b])
			src.BandFluxErr[b] = (lo + hi) / 2
		}
		table.Sources = append(table.Sources, src)
	}
	return table, nil
}

// LoadDetections reads the name→detection identifier catalog.
func LoadDetections(r io.Reader) ([]model.DR11Row, error) {
	var rows []struct {
		IAUName string `json:"IAUNAME"`
		DetID   int64  `json:"DETID"`
	}
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("LoadDetections: decode failed: %w", err)
	}
	out := make([]model.DR11Row, len(rows))
	for i, row := range rows {
		out[i] = model.DR11Row{IAUName: row.IAUName, DetID: row.DetID}
	}
	return out, nil
}

// LoadSpectralFits reads the auxiliary per-detection spectral fits.
func LoadSpectralFits(r io.Reader) ([]model.SpectralFitRow, error) {
	var rows []struct {
		DetID         int64   `json:"DETID"`
		PhotonIndex   float64 `json:"PhoIndex_med"`
		PhotonIndexLo float64 `json:"PhoIndex_min"`
		PhotonIndexHi float64 `json:"PhoIndex_max"`
		LogNhMed      float64 `json:"logNH_med"`
	}
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("LoadSpectralFits: decode failed: %w", err)
	}
	out := make([]model.SpectralFitRow, len(rows))
	for i, row := range rows {
		out[i] = model.SpectralFitRow{
			DetID:         row.DetID,
			PhotonIndex:   row.PhotonIndex,
			PhotonIndexLo: row.PhotonIndexLo,
			PhotonIndexHi: row.PhotonIndexHi,
			LogNhMed:      row.LogNhMed,
		}
	}
	return out, nil
}

// LoadMasterJoins reads the cross-catalog master table, keeping only
// the rows naming a source of the given schema's family.
func LoadMasterJoins(schema *model.CatalogSchema, r io.Reader) ([]model.MasterJoin, error) {
	var rows []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("LoadMasterJoins: decode failed: %w", err)
	}
	var out []model.MasterJoin
	for _, row := range rows {
		name, ok := stringColumn(row, schema.MasterColumn)
		if !ok || name == "" {
			continue
		}
		id := int64(floatColumn(row, "MASTER_ID"))
		out = append(out, model.MasterJoin{SourceName: name, MasterID: id})
	}
	return out, nil
}

// LoadNhSkyMap reads sampled column-density lines of sight.
func LoadNhSkyMap(r io.Reader) (*NhSkyMap, error) {
	var rows []struct {
		RA  float64 `json:"ra_deg"`
		Dec float64 `json:"dec_deg"`
		Nh  float64 `json:"nh"`
	}
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("LoadNhSkyMap: decode failed: %w", err)
	}
	samples := make([]model.NhSample, len(rows))
	for i, row := range rows {
		samples[i] = model.NhSample{
			Position: model.SkyCoord{RADeg: row.RA, DecDeg: row.Dec},
			Nh:       row.Nh,
		}
	}
	return NewNhSkyMap(samples), nil
}

// stringColumn extracts a string cell; ok is false when the column is
// absent or not a string.
func stringColumn(row map[string]json.RawMessage, col string) (string, bool) {
	raw, ok := row[col]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// floatColumn extracts a numeric cell, mapping absent, null, or
// non-numeric values to NaN.
func floatColumn(row map[string]json.RawMessage, col string) float64 {
	raw, ok := row[col]
	if !ok {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return math.NaN()
	}
	return f
}
