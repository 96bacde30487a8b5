package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-master-backend/internal/models"
)

var maestraCols = []string{
	models.ColRegion, models.ColCustomer, models.ColFormato,
	models.ColCenterCode, models.ColCenterDesc, models.ColRol, models.ColUsuario,
	"lunes", "martes", "miercoles", "jueves", "viernes", "sabado",
}

var compiladoCols = []string{
	models.ColRegion, models.ColCustomer, models.ColFormato,
	models.ColCenterCode, models.ColCenterDesc, models.ColUsuario,
	"lunes", "martes", "miercoles", "jueves", "viernes", "sabado",
}

func baseRow() map[string]string {
	return map[string]string{
		models.ColRegion:     "Centro",
		models.ColCustomer:   "CENCOSUD",
		models.ColFormato:    "Jumbo",
		models.ColCenterCode: "J-100",
		models.ColCenterDesc: "Jumbo Costanera",
		models.ColRol:        models.RolModificable,
		models.ColUsuario:    "juan.perez@castano.cl",
		"lunes":              "X",
		"martes":             "",
		"miercoles":          "X",
		"jueves":             "",
		"viernes":            "X",
		"sabado":             "",
	}
}

func row(overrides map[string]string) map[string]string {
	r := baseRow()
	for k, v := range overrides {
		r[k] = v
	}
	return r
}

func buildTable(name string, cols []string, rows ...map[string]string) *models.Table {
	t := &models.Table{Name: name, Columns: cols}
	for i, src := range rows {
		values := make(map[string]string, len(cols))
		for _, c := range cols {
			values[c] = src[c]
		}
		t.Records = append(t.Records, models.RouteRecord{Row: i, Values: values})
	}
	return t
}

func reconcile(t *testing.T, maestraRows, compiladoRows []map[string]string) *models.ReconciliationResult {
	t.Helper()
	engine := NewEngine(DefaultConfig())
	result, err := engine.Reconcile(
		buildTable("Maestra_de_Rutas", maestraCols, maestraRows...),
		buildTable("Compilado", compiladoCols, compiladoRows...),
	)
	require.NoError(t, err)
	return result
}

func outcomeForMaestra(t *testing.T, result *models.ReconciliationResult, row int) models.MatchOutcome {
	t.Helper()
	for _, o := range result.Outcomes {
		if o.MaestraRow == row {
			return o
		}
	}
	t.Fatalf("sin outcome para fila maestra %d", row)
	return models.MatchOutcome{}
}

func TestReconcileIdenticalRowsAreExact(t *testing.T) {
	result := reconcile(t,
		[]map[string]string{row(nil)},
		[]map[string]string{row(nil)},
	)

	require.Len(t, result.Outcomes, 1)
	o := result.Outcomes[0]
	assert.Equal(t, models.MatchExact, o.Kind)
	assert.Equal(t, models.CriterionCenterDesc, o.Criterion)
	assert.Equal(t, 0, o.MaestraRow)
	assert.Equal(t, 0, o.CompiladoRow)
	// desc + code + formato + cliente all corroborate.
	assert.Equal(t, 4, o.FieldsMatched)
	assert.InDelta(t, 1.0, o.Confidence, 1e-9)
}

func TestReconcileKeyHitWithDifferentUserIsRelative(t *testing.T) {
	result := reconcile(t,
		[]map[string]string{row(nil)},
		[]map[string]string{row(map[string]string{models.ColUsuario: "Maria Lopez"})},
	)

	o := result.Outcomes[0]
	assert.Equal(t, models.MatchRelative, o.Kind)
	assert.Equal(t, models.CriterionCenterDesc, o.Criterion)
}

func TestReconcileKeyHitWithDifferentDayMarkIsRelative(t *testing.T) {
	result := reconcile(t,
		[]map[string]string{row(nil)},
		[]map[string]string{row(map[string]string{"martes": "X"})},
	)
	assert.Equal(t, models.MatchRelative, result.Outcomes[0].Kind)
}

func TestReconcileTolerantMarksStillExact(t *testing.T) {
	// "1" and "si" are just spellings of the X mark, not real differences.
	result := reconcile(t,
		[]map[string]string{row(nil)},
		[]map[string]string{row(map[string]string{"lunes": "1", "miercoles": "si", "viernes": "X"})},
	)
	assert.Equal(t, models.MatchExact, result.Outcomes[0].Kind)
}

func TestReconcileDisjointRows(t *testing.T) {
	shared := row(nil)
	soloMaestra := row(map[string]string{
		models.ColCenterCode: "J-200",
		models.ColCenterDesc: "Jumbo Bilbao",
		models.ColRegion:     "Norte",
		models.ColFormato:    "Santa Isabel",
	})
	soloCompilado := row(map[string]string{
		models.ColCenterCode: "J-300",
		models.ColCenterDesc: "Jumbo Kennedy",
		models.ColRegion:     "Sur",
		models.ColFormato:    "Super 10",
	})

	result := reconcile(t,
		[]map[string]string{shared, soloMaestra},
		[]map[string]string{shared, soloCompilado},
	)

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, models.MatchExact, outcomeForMaestra(t, result, 0).Kind)

	unmatched := outcomeForMaestra(t, result, 1)
	assert.Equal(t, models.MatchMaestraOnly, unmatched.Kind)
	assert.Equal(t, -1, unmatched.CompiladoRow)
	assert.Equal(t, models.ReasonNoCandidate, unmatched.Reason)

	var leftovers []models.MatchOutcome
	for _, o := range result.Outcomes {
		if o.Kind == models.MatchCompiladoOnly {
			leftovers = append(leftovers, o)
		}
	}
	require.Len(t, leftovers, 1)
	assert.Equal(t, 1, leftovers[0].CompiladoRow)
	assert.Equal(t, -1, leftovers[0].MaestraRow)
}

func TestReconcileCenterCodeCriterionNeedsCorroboration(t *testing.T) {
	// Same code, different desc; formato and cliente corroborate.
	result := reconcile(t,
		[]map[string]string{row(nil)},
		[]map[string]string{row(map[string]string{models.ColCenterDesc: "Jumbo Costanera Center"})},
	)
	o := result.Outcomes[0]
	assert.True(t, o.Matched())
	assert.Equal(t, models.CriterionCenterCode, o.Criterion)
	assert.Equal(t, 3, o.FieldsMatched)
	assert.InDelta(t, 1.0, o.Confidence, 1e-9)
}

func TestReconcileRelaxedKeyWithKeywordOverlap(t *testing.T) {
	// Codes spelled differently, same digits; desc shares vocabulary.
	result := reconcile(t,
		[]map[string]string{row(map[string]string{
			models.ColCenterCode: "J-100",
			models.ColCenterDesc: "Jumbo Maipu Norte",
		})},
		[]map[string]string{row(map[string]string{
			models.ColCenterCode: "J100",
			models.ColCenterDesc: "Jumbo Maipu Poniente",
			models.ColCustomer:   "Cencosud",
		})},
	)

	o := result.Outcomes[0]
	assert.Equal(t, models.MatchRelative, o.Kind)
	assert.Equal(t, models.CriterionRelaxedKey, o.Criterion)
	assert.InDelta(t, 0.90, o.Confidence, 1e-9)
	assert.Equal(t, []string{"jumbo", "maipu"}, o.CommonWords)
}

func TestReconcileRelaxedKeyWithoutOverlapIsAmbiguous(t *testing.T) {
	result := reconcile(t,
		[]map[string]string{row(map[string]string{
			models.ColCenterCode: "J-100",
			models.ColCenterDesc: "Bodega Central",
		})},
		[]map[string]string{row(map[string]string{
			models.ColCenterCode: "J100",
			models.ColCenterDesc: "Plaza Oeste",
		})},
	)

	o := outcomeForMaestra(t, result, 0)
	assert.Equal(t, models.MatchMaestraOnly, o.Kind)
	assert.Equal(t, models.ReasonAmbiguous, o.Reason)

	// The unguessed candidate stays on the compilado side.
	var leftover int
	for _, out := range result.Outcomes {
		if out.Kind == models.MatchCompiladoOnly {
			leftover++
		}
	}
	assert.Equal(t, 1, leftover)
}

func TestReconcileDigitsOnlyFallback(t *testing.T) {
	// Region differs so the relaxed key misses; only the code digits agree.
	result := reconcile(t,
		[]map[string]string{row(map[string]string{
			models.ColRegion:     "RM",
			models.ColCenterCode: "J-100",
			models.ColCenterDesc: "Jumbo Costanera",
		})},
		[]map[string]string{row(map[string]string{
			models.ColRegion:     "Region Metropolitana",
			models.ColCenterCode: "100",
			models.ColCenterDesc: "Jumbo Costanera Local",
		})},
	)

	o := result.Outcomes[0]
	assert.Equal(t, models.MatchRelative, o.Kind)
	assert.Equal(t, models.CriterionCenterDigits, o.Criterion)
	assert.InDelta(t, 0.70, o.Confidence, 1e-9)
}

func TestReconcileDigitsOnlyWithoutKeywordsLowConfidence(t *testing.T) {
	result := reconcile(t,
		[]map[string]string{row(map[string]string{
			models.ColRegion:     "RM",
			models.ColCenterCode: "J-100",
			models.ColCenterDesc: "Bodega Central",
		})},
		[]map[string]string{row(map[string]string{
			models.ColRegion:     "Region Metropolitana",
			models.ColCenterCode: "100",
			models.ColCenterDesc: "Plaza Oeste",
		})},
	)

	o := result.Outcomes[0]
	assert.Equal(t, models.MatchRelative, o.Kind)
	assert.Equal(t, models.CriterionCenterDigits, o.Criterion)
	assert.InDelta(t, 0.50, o.Confidence, 1e-9)
}

func TestReconcileRoleExcluded(t *testing.T) {
	result := reconcile(t,
		[]map[string]string{row(map[string]string{models.ColRol: "Gerente"})},
		[]map[string]string{row(nil)},
	)

	o := outcomeForMaestra(t, result, 0)
	assert.Equal(t, models.MatchMaestraOnly, o.Kind)
	assert.Equal(t, models.ReasonRoleExcluded, o.Reason)
}

func TestReconcileTieBreakKeepsEarliestRow(t *testing.T) {
	dup := row(nil)
	result := reconcile(t,
		[]map[string]string{row(nil)},
		[]map[string]string{dup, dup},
	)

	o := outcomeForMaestra(t, result, 0)
	assert.Equal(t, models.MatchExact, o.Kind)
	assert.Equal(t, 0, o.CompiladoRow)
}

func TestReconcileEachCompiladoRowConsumedOnce(t *testing.T) {
	// Two identical maestra rows, one compilado row: only one can match.
	m := row(nil)
	result := reconcile(t,
		[]map[string]string{m, m},
		[]map[string]string{row(nil)},
	)

	matched := 0
	for _, o := range result.Outcomes {
		if o.Matched() {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
}

func TestReconcileEmptyTables(t *testing.T) {
	result := reconcile(t, nil, nil)
	assert.Empty(t, result.Outcomes)

	result = reconcile(t, nil, []map[string]string{row(nil)})
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, models.MatchCompiladoOnly, result.Outcomes[0].Kind)

	result = reconcile(t, []map[string]string{row(nil)}, nil)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, models.MatchMaestraOnly, result.Outcomes[0].Kind)
}

func TestReconcileUnclassifiableRowFails(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	bad := row(map[string]string{models.ColCenterCode: "", models.ColCenterDesc: ""})
	_, err := engine.Reconcile(
		buildTable("Maestra_de_Rutas", maestraCols, bad),
		buildTable("Compilado", compiladoCols),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clasificable")
}

func TestReconcileCoverageInvariant(t *testing.T) {
	maestraRows := []map[string]string{
		row(nil),
		row(map[string]string{models.ColCenterCode: "J-200", models.ColCenterDesc: "Jumbo Bilbao"}),
		row(map[string]string{models.ColRol: "Gerente", models.ColCenterCode: "J-300", models.ColCenterDesc: "Jumbo Kennedy"}),
	}
	compiladoRows := []map[string]string{
		row(nil),
		row(map[string]string{models.ColCenterCode: "J-400", models.ColCenterDesc: "Jumbo Vina", models.ColRegion: "Costa"}),
	}
	result := reconcile(t, maestraRows, compiladoRows)

	mSeen := map[int]bool{}
	cSeen := map[int]bool{}
	for _, o := range result.Outcomes {
		if o.MaestraRow >= 0 {
			assert.False(t, mSeen[o.MaestraRow], "fila maestra repetida")
			mSeen[o.MaestraRow] = true
		}
		if o.CompiladoRow >= 0 {
			assert.False(t, cSeen[o.CompiladoRow], "fila compilado repetida")
			cSeen[o.CompiladoRow] = true
		}
	}
	assert.Len(t, mSeen, len(maestraRows))
	assert.Len(t, cSeen, len(compiladoRows))
}

func TestReconcileDeterministic(t *testing.T) {
	maestraRows := []map[string]string{
		row(nil),
		row(map[string]string{models.ColCenterCode: "J-200", models.ColCenterDesc: "Jumbo Bilbao"}),
	}
	compiladoRows := []map[string]string{
		row(map[string]string{models.ColCenterDesc: "Jumbo Bilbao", models.ColCenterCode: "J-200"}),
		row(nil),
	}

	first := reconcile(t, maestraRows, compiladoRows)
	for i := 0; i < 5; i++ {
		again := reconcile(t, maestraRows, compiladoRows)
		assert.Equal(t, first.Outcomes, again.Outcomes)
	}
}
