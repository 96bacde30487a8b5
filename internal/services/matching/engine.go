// Package matching implements the two-pass reconciler between the Maestra de
// Rutas and the Compilado sheet.
//
// Pass 1 (exact) walks the maestra in input order and looks for a compilado
// row with the same business key: either the normalized center_desc, or the
// center_code corroborated by at least one more field. A key hit whose value
// fields (usuario and weekday marks) all agree is an exact match; a key hit
// with differing values is a relative match.
//
// Pass 2 (relative) retries the remaining rows under relaxed keys: first
// (region, familia, center-code digits) with a center_desc keyword check,
// then digits-only center_code. Candidate ranking uses keyword overlap;
// ties go to the lowest source row, so the result is deterministic.
//
// Every input row ends up in exactly one outcome and a row is consumed by at
// most one match. The engine never mutates its inputs.
package matching

import (
	"fmt"
	"strings"

	"route-master-backend/internal/models"
	"route-master-backend/internal/normalize"
)

// Confidence constants, carried over from the production matching rules.
const (
	confCenterDescBase = 0.90
	confCenterDescStep = 0.025
	confCenterCodeBase = 0.85
	confCenterCodeStep = 0.05
	confRelaxedKeyword = 0.90
	confRelaxedBlind   = 0.75
	confDigitsKeyword  = 0.70
	confDigitsBlind    = 0.50
)

// Config controls which maestra rows participate in matching.
type Config struct {
	// EligibleRole restricts matching to rows with this rol value; empty
	// means every row is eligible.
	EligibleRole string
}

// DefaultConfig matches only supervisor rows, as the business rules demand.
func DefaultConfig() Config {
	return Config{EligibleRole: models.RolModificable}
}

// Engine reconciles two tables. Zero side effects; safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// feature caches the normalized view of one row so passes never re-normalize.
type feature struct {
	row        int
	rec        models.RouteRecord
	eligible   bool
	centerDesc string
	centerCode string
	digits     string
	cliente    string
	formato    string
	region     string
	familia    string
	keywords   map[string]bool
}

type relaxedKey struct {
	region  string
	familia string
	digits  string
}

// Reconcile classifies every row of both tables into exactly one outcome.
// It fails, without partial results, when a row lacks both center_code and
// center_desc and therefore cannot be classified at all.
func (e *Engine) Reconcile(maestra, compilado *models.Table) (*models.ReconciliationResult, error) {
	mFeats, err := e.features(maestra, true)
	if err != nil {
		return nil, fmt.Errorf("maestra: %w", err)
	}
	cFeats, err := e.features(compilado, false)
	if err != nil {
		return nil, fmt.Errorf("compilado: %w", err)
	}

	// Indexes over the compilado; slices keep insertion order so the
	// first-occurrence tie-break falls out naturally.
	byCenterDesc := map[string][]int{}
	byCenterCode := map[string][]int{}
	byRelaxed := map[relaxedKey][]int{}
	byDigits := map[string][]int{}
	for i, f := range cFeats {
		if f.centerDesc != "" {
			byCenterDesc[f.centerDesc] = append(byCenterDesc[f.centerDesc], i)
		}
		if f.centerCode != "" {
			byCenterCode[f.centerCode] = append(byCenterCode[f.centerCode], i)
		}
		key := relaxedKey{f.region, f.familia, f.digits}
		byRelaxed[key] = append(byRelaxed[key], i)
		if f.digits != "" {
			byDigits[f.digits] = append(byDigits[f.digits], i)
		}
	}

	consumed := make([]bool, len(cFeats))
	outcomes := make([]models.MatchOutcome, len(mFeats))
	settled := make([]bool, len(mFeats))
	compareCols := comparableColumns(compilado)

	// 1. Exact pass.
	for i, m := range mFeats {
		if !m.eligible {
			outcomes[i] = models.MatchOutcome{
				Kind:         models.MatchMaestraOnly,
				MaestraRow:   m.row,
				CompiladoRow: -1,
				CenterCode:   m.centerCode,
				Reason:       models.ReasonRoleExcluded,
			}
			settled[i] = true
			continue
		}

		// Criterion 1: center_desc equality, extra fields raise confidence.
		if m.centerDesc != "" {
			if j, fields, ok := bestExactByDesc(m, cFeats, byCenterDesc[m.centerDesc], consumed); ok {
				outcomes[i] = pairOutcome(m, cFeats[j], compareCols, models.CriterionCenterDesc,
					capConf(confCenterDescBase+float64(fields)*confCenterDescStep), fields)
				consumed[j] = true
				settled[i] = true
				continue
			}
		}

		// Criterion 2: center_code plus at least one corroborating field.
		if m.centerCode != "" {
			if j, fields, ok := bestExactByCode(m, cFeats, byCenterCode[m.centerCode], consumed); ok {
				outcomes[i] = pairOutcome(m, cFeats[j], compareCols, models.CriterionCenterCode,
					capConf(confCenterCodeBase+float64(fields)*confCenterCodeStep), fields)
				consumed[j] = true
				settled[i] = true
			}
		}
	}

	// 2. Relative pass, cycle 1: region + familia + digits.
	var pending []int
	for i, m := range mFeats {
		if settled[i] {
			continue
		}
		cands := unconsumed(byRelaxed[relaxedKey{m.region, m.familia, m.digits}], consumed)
		if len(cands) == 0 {
			pending = append(pending, i)
			continue
		}
		j, common := bestByKeywords(m, cFeats, cands)
		switch {
		case len(common) > 0:
			o := pairOutcome(m, cFeats[j], compareCols, models.CriterionRelaxedKey, confRelaxedKeyword, 0)
			o.CommonWords = common
			outcomes[i] = o
			consumed[j] = true
		case len(m.keywords) == 0:
			// Nothing to compare descriptions with; accept at lower confidence.
			outcomes[i] = pairOutcome(m, cFeats[j], compareCols, models.CriterionRelaxedKey, confRelaxedBlind, 0)
			consumed[j] = true
		default:
			// Key agrees but descriptions share no vocabulary: ambiguous,
			// left for manual review rather than guessed.
			outcomes[i] = models.MatchOutcome{
				Kind:         models.MatchMaestraOnly,
				MaestraRow:   m.row,
				CompiladoRow: -1,
				CenterCode:   m.centerCode,
				Reason:       models.ReasonAmbiguous,
			}
		}
		settled[i] = true
	}

	// 3. Relative pass, cycle 2: digits-only center_code.
	for _, i := range pending {
		m := mFeats[i]
		var cands []int
		if m.digits != "" {
			cands = unconsumed(byDigits[m.digits], consumed)
		}
		if len(cands) == 0 {
			outcomes[i] = models.MatchOutcome{
				Kind:         models.MatchMaestraOnly,
				MaestraRow:   m.row,
				CompiladoRow: -1,
				CenterCode:   m.centerCode,
				Reason:       models.ReasonNoCandidate,
			}
			continue
		}
		j, common := bestByKeywords(m, cFeats, cands)
		conf := confDigitsBlind
		if len(common) > 0 {
			conf = confDigitsKeyword
		}
		o := pairOutcome(m, cFeats[j], compareCols, models.CriterionCenterDigits, conf, 0)
		o.CommonWords = common
		outcomes[i] = o
		consumed[j] = true
	}

	// 4. Whatever the compilado still holds was never matched.
	for j, f := range cFeats {
		if !consumed[j] {
			outcomes = append(outcomes, models.MatchOutcome{
				Kind:         models.MatchCompiladoOnly,
				MaestraRow:   -1,
				CompiladoRow: f.row,
				CenterCode:   f.centerCode,
			})
		}
	}

	result := &models.ReconciliationResult{Maestra: maestra, Compilado: compilado, Outcomes: outcomes}
	if err := checkCoverage(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) features(t *models.Table, isMaestra bool) ([]feature, error) {
	feats := make([]feature, len(t.Records))
	for i, rec := range t.Records {
		f := feature{
			row:        rec.Row,
			rec:        rec,
			eligible:   true,
			centerDesc: normalize.Text(rec.Get(models.ColCenterDesc)),
			centerCode: strings.TrimSpace(rec.Get(models.ColCenterCode)),
			cliente:    normalize.Text(rec.Get(models.ColCustomer)),
			formato:    normalize.Text(rec.Get(models.ColFormato)),
			region:     normalize.Text(rec.Get(models.ColRegion)),
			keywords:   normalize.Keywords(rec.Get(models.ColCenterDesc)),
		}
		f.digits = normalize.Digits(f.centerCode)
		f.familia = normalize.Familia(rec.Get(models.ColCustomer), rec.Get(models.ColFormato))
		if isMaestra && e.cfg.EligibleRole != "" {
			f.eligible = strings.TrimSpace(rec.Get(models.ColRol)) == e.cfg.EligibleRole
		}
		if f.centerCode == "" && f.centerDesc == "" && (!isMaestra || f.eligible) {
			return nil, fmt.Errorf("fila %d: sin center_code ni center_desc, no clasificable", rec.Row+2)
		}
		feats[i] = f
	}
	return feats, nil
}

// comparableColumns returns the value fields both sheets can disagree on:
// usuario plus whatever weekday columns the compilado actually carries.
func comparableColumns(compilado *models.Table) []string {
	cols := []string{models.ColUsuario}
	for _, day := range models.WeekdayColumns {
		if compilado.HasColumn(day) {
			cols = append(cols, day)
		}
	}
	return cols
}

// pairOutcome builds the outcome for a matched pair. Key hits from the exact
// pass still downgrade to relative when any value field disagrees; relaxed
// key hits are relative by definition.
func pairOutcome(m, c feature, compareCols []string, criterion string, conf float64, fields int) models.MatchOutcome {
	kind := models.MatchExact
	if criterion == models.CriterionRelaxedKey || criterion == models.CriterionCenterDigits {
		kind = models.MatchRelative
	} else {
		for _, col := range compareCols {
			if !valuesAgree(col, m.rec.Get(col), c.rec.Get(col)) {
				kind = models.MatchRelative
				break
			}
		}
	}
	code := c.centerCode
	if code == "" {
		code = m.centerCode
	}
	return models.MatchOutcome{
		Kind:          kind,
		MaestraRow:    m.row,
		CompiladoRow:  c.row,
		CenterCode:    code,
		Criterion:     criterion,
		Confidence:    conf,
		FieldsMatched: fields,
	}
}

func valuesAgree(col, maestraVal, compiladoVal string) bool {
	if col == models.ColUsuario {
		nuevo := normalize.User(compiladoVal)
		if nuevo == "" {
			return true
		}
		return strings.ToLower(strings.TrimSpace(maestraVal)) == nuevo
	}
	return normalize.Mark(maestraVal) == normalize.Mark(compiladoVal)
}

// bestExactByDesc scores criterion-1 candidates by how many extra fields
// corroborate the center_desc hit. Ties keep the earliest row.
func bestExactByDesc(m feature, cFeats []feature, cands []int, consumed []bool) (int, int, bool) {
	bestIdx, bestFields := -1, -1
	for _, j := range cands {
		if consumed[j] {
			continue
		}
		c := cFeats[j]
		fields := 1
		if c.centerCode != "" && c.centerCode == m.centerCode {
			fields++
		}
		if c.formato != "" && c.formato == m.formato {
			fields++
		}
		if c.cliente != "" && c.cliente == m.cliente {
			fields++
		}
		if fields > bestFields {
			bestIdx, bestFields = j, fields
		}
	}
	if bestIdx < 0 {
		return 0, 0, false
	}
	return bestIdx, bestFields, true
}

// bestExactByCode requires the code plus at least one corroborating field.
func bestExactByCode(m feature, cFeats []feature, cands []int, consumed []bool) (int, int, bool) {
	bestIdx, bestFields := -1, -1
	for _, j := range cands {
		if consumed[j] {
			continue
		}
		c := cFeats[j]
		fields := 1
		if c.formato != "" && c.formato == m.formato {
			fields++
		}
		if c.cliente != "" && c.cliente == m.cliente {
			fields++
		}
		if fields >= 2 && fields > bestFields {
			bestIdx, bestFields = j, fields
		}
	}
	if bestIdx < 0 {
		return 0, 0, false
	}
	return bestIdx, bestFields, true
}

// bestByKeywords picks the candidate sharing the most center_desc keywords.
func bestByKeywords(m feature, cFeats []feature, cands []int) (int, []string) {
	bestIdx, bestScore := cands[0], -1
	var bestCommon []string
	for _, j := range cands {
		common := normalize.CommonKeywords(m.keywords, cFeats[j].keywords)
		if len(common) > bestScore {
			bestIdx, bestScore, bestCommon = j, len(common), common
		}
	}
	return bestIdx, bestCommon
}

func unconsumed(cands []int, consumed []bool) []int {
	var out []int
	for _, j := range cands {
		if !consumed[j] {
			out = append(out, j)
		}
	}
	return out
}

// checkCoverage enforces the no-loss invariant: every row of both tables in
// exactly one outcome, matched rows counted once per side.
func checkCoverage(r *models.ReconciliationResult) error {
	mSeen := map[int]bool{}
	cSeen := map[int]bool{}
	for _, o := range r.Outcomes {
		if o.MaestraRow >= 0 {
			if mSeen[o.MaestraRow] {
				return fmt.Errorf("fila maestra %d clasificada dos veces", o.MaestraRow)
			}
			mSeen[o.MaestraRow] = true
		}
		if o.CompiladoRow >= 0 {
			if cSeen[o.CompiladoRow] {
				return fmt.Errorf("fila compilado %d clasificada dos veces", o.CompiladoRow)
			}
			cSeen[o.CompiladoRow] = true
		}
	}
	if len(mSeen) != len(r.Maestra.Records) || len(cSeen) != len(r.Compilado.Records) {
		return fmt.Errorf("cobertura incompleta: %d/%d maestra, %d/%d compilado",
			len(mSeen), len(r.Maestra.Records), len(cSeen), len(r.Compilado.Records))
	}
	return nil
}

func capConf(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
