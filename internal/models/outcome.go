package models

// MatchKind classifies what happened to a record pair during reconciliation.
// The set is closed on purpose: KPI aggregation switches over it exhaustively.
type MatchKind int

const (
	// MatchExact: business key matched and every compared value field agrees.
	MatchExact MatchKind = iota
	// MatchRelative: key matched but values differ, or the pair was found
	// under a relaxed key rule.
	MatchRelative
	// MatchMaestraOnly: the maestra row found no counterpart.
	MatchMaestraOnly
	// MatchCompiladoOnly: the compilado row was never consumed by a match.
	MatchCompiladoOnly
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "EXACTO"
	case MatchRelative:
		return "RELATIVO"
	case MatchMaestraOnly:
		return "SOLO_MAESTRA"
	case MatchCompiladoOnly:
		return "SOLO_COMPILADO"
	default:
		return "DESCONOCIDO"
	}
}

// Match criteria, recorded on each outcome for the audit report.
const (
	CriterionCenterDesc   = "center_desc"
	CriterionCenterCode   = "center_code+campos"
	CriterionRelaxedKey   = "region+familia+digitos"
	CriterionCenterDigits = "center_code_digitos"
)

// MatchOutcome is the classification of one record (or pair). Exactly one
// outcome exists per input record across both tables; the rows referenced are
// read-only views into the ingested tables.
type MatchOutcome struct {
	Kind MatchKind

	// MaestraRow / CompiladoRow are sheet body positions; -1 when the side
	// did not participate.
	MaestraRow   int
	CompiladoRow int

	CenterCode string
	Criterion  string
	Confidence float64

	// FieldsMatched counts the corroborating key fields of the exact pass.
	FieldsMatched int
	// CommonWords are the shared center_desc keywords of the relative pass.
	CommonWords []string
	// Reason explains unmatched and ambiguous outcomes.
	Reason string
}

// Matched reports whether the outcome pairs a maestra row with a compilado row.
func (o MatchOutcome) Matched() bool {
	return o.Kind == MatchExact || o.Kind == MatchRelative
}

// ReconciliationResult is the complete outcome set of one run plus the tables
// it was computed from. It is owned by the run and discarded after reporting.
type ReconciliationResult struct {
	Maestra   *Table
	Compilado *Table
	Outcomes  []MatchOutcome
}

// MatchedOutcomes returns the exact and relative matches in maestra order.
func (r *ReconciliationResult) MatchedOutcomes() []MatchOutcome {
	var out []MatchOutcome
	for _, o := range r.Outcomes {
		if o.Matched() {
			out = append(out, o)
		}
	}
	return out
}

// AmbiguousOutcomes returns maestra-only outcomes that failed the keyword
// check of the relaxed pass; the KPI workbook lists them separately.
func (r *ReconciliationResult) AmbiguousOutcomes() []MatchOutcome {
	var out []MatchOutcome
	for _, o := range r.Outcomes {
		if o.Kind == MatchMaestraOnly && o.Reason == ReasonAmbiguous {
			out = append(out, o)
		}
	}
	return out
}

// Reasons attached to MaestraOnly outcomes.
const (
	ReasonAmbiguous    = "center_desc sin coincidencia"
	ReasonRoleExcluded = "rol no modificable"
	ReasonNoCandidate  = "sin candidatos"
)
