package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-master-backend/internal/models"
)

func TestAggregateKPIs(t *testing.T) {
	maestra := maestraTable(
		map[string]string{models.ColCenterCode: "J-100"},
		map[string]string{models.ColCenterCode: "J-200"},
		map[string]string{models.ColCenterCode: "J-300"},
		map[string]string{models.ColCenterCode: "J-400"},
	)
	compilado := compiladoTable(
		map[string]string{models.ColCenterCode: "J-100", models.ColRegion: "Centro"},
		map[string]string{models.ColCenterCode: "J-200", models.ColRegion: "Centro"},
		map[string]string{models.ColCenterCode: "J-900", models.ColRegion: "Sur"},
	)
	result := &models.ReconciliationResult{
		Maestra:   maestra,
		Compilado: compilado,
		Outcomes: []models.MatchOutcome{
			{Kind: models.MatchExact, MaestraRow: 0, CompiladoRow: 0, CenterCode: "J-100"},
			{Kind: models.MatchRelative, MaestraRow: 1, CompiladoRow: 1, CenterCode: "J-200"},
			{Kind: models.MatchMaestraOnly, MaestraRow: 2, CompiladoRow: -1, CenterCode: "J-300", Reason: models.ReasonAmbiguous},
			{Kind: models.MatchMaestraOnly, MaestraRow: 3, CompiladoRow: -1, CenterCode: "J-400", Reason: models.ReasonNoCandidate},
			{Kind: models.MatchCompiladoOnly, MaestraRow: -1, CompiladoRow: 2, CenterCode: "J-900"},
		},
	}
	changes := []models.ChangeEntry{
		{CenterCode: "J-200", Field: models.ColUsuario},
		{CenterCode: "J-200", Field: "lunes"},
	}

	kpis := AggregateKPIs(result, changes)

	assert.Equal(t, 3, kpis.TotalCompilado)
	assert.Equal(t, 1, kpis.ExactMatches)
	assert.Equal(t, 1, kpis.RelativeMatches)
	assert.Equal(t, 2, kpis.TotalMatches)
	assert.Equal(t, 2, kpis.MaestraUnmatched)
	assert.Equal(t, 1, kpis.CompiladoOnly)
	assert.Equal(t, 1, kpis.AmbiguousCount)
	assert.Equal(t, 2, kpis.ChangeCount)
	// RowsUpdated counts distinct matched center codes.
	assert.Equal(t, 2, kpis.RowsUpdated)

	assert.InDelta(t, 100.0/3, kpis.PctExact, 1e-9)
	assert.InDelta(t, 100.0/3, kpis.PctRelative, 1e-9)
	assert.InDelta(t, 200.0/3, kpis.PctTotal, 1e-9)

	require.Contains(t, kpis.ByRegion, "centro")
	require.Contains(t, kpis.ByRegion, "sur")
	centro := kpis.ByRegion["centro"]
	assert.Equal(t, 2, centro.Compilado)
	assert.Equal(t, 1, centro.Exact)
	assert.Equal(t, 1, centro.Relative)
	sur := kpis.ByRegion["sur"]
	assert.Equal(t, 1, sur.Compilado)
	assert.Equal(t, 1, sur.Unmatched)
}

func TestAggregateKPIsEmptyRun(t *testing.T) {
	result := &models.ReconciliationResult{
		Maestra:   maestraTable(),
		Compilado: compiladoTable(),
	}
	kpis := AggregateKPIs(result, nil)

	assert.Zero(t, kpis.TotalCompilado)
	assert.Zero(t, kpis.TotalMatches)
	assert.Zero(t, kpis.PctTotal)
	assert.Zero(t, kpis.PctRowsUpdated)
	assert.Empty(t, kpis.ByRegion)
}

func TestAggregateKPIsCountsConsistent(t *testing.T) {
	result := &models.ReconciliationResult{
		Maestra: maestraTable(
			map[string]string{models.ColCenterCode: "A"},
			map[string]string{models.ColCenterCode: "B"},
		),
		Compilado: compiladoTable(
			map[string]string{models.ColCenterCode: "A"},
			map[string]string{models.ColCenterCode: "C"},
		),
		Outcomes: []models.MatchOutcome{
			{Kind: models.MatchExact, MaestraRow: 0, CompiladoRow: 0, CenterCode: "A"},
			{Kind: models.MatchMaestraOnly, MaestraRow: 1, CompiladoRow: -1, CenterCode: "B", Reason: models.ReasonNoCandidate},
			{Kind: models.MatchCompiladoOnly, MaestraRow: -1, CompiladoRow: 1, CenterCode: "C"},
		},
	}

	kpis := AggregateKPIs(result, nil)

	// Matched plus compilado-only equals the compilado row count.
	assert.Equal(t, kpis.TotalCompilado, kpis.TotalMatches+kpis.CompiladoOnly)
	// Matched plus maestra-only equals the maestra row count.
	assert.Equal(t, len(result.Maestra.Records), kpis.TotalMatches+kpis.MaestraUnmatched)
}
