package models

// KPIReport aggregates one reconciliation run. Percentages are relative to
// the compilado row count, matching the original business reporting.
type KPIReport struct {
	TotalCompilado   int `json:"total_filas_compilado"`
	ExactMatches     int `json:"coincidencias_exactas"`
	RelativeMatches  int `json:"coincidencias_relativas"`
	TotalMatches     int `json:"total_coincidencias"`
	RowsUpdated      int `json:"filas_actualizadas"`
	ChangeCount      int `json:"total_cambios"`
	MaestraUnmatched int `json:"solo_maestra"`
	CompiladoOnly    int `json:"solo_compilado"`
	AmbiguousCount   int `json:"casos_ambiguos"`

	PctExact       float64 `json:"pct_matching_exacto"`
	PctRelative    float64 `json:"pct_matching_relativo"`
	PctTotal       float64 `json:"pct_total_matching"`
	PctRowsUpdated float64 `json:"pct_filas_actualizadas"`

	// ByRegion breaks match counts down by normalized region_desc.
	ByRegion map[string]RegionKPI `json:"por_region,omitempty"`
}

// RegionKPI is the per-zone slice of the match counters.
type RegionKPI struct {
	Compilado int `json:"compilado"`
	Exact     int `json:"exactas"`
	Relative  int `json:"relativas"`
	Unmatched int `json:"sin_coincidencia"`
}
