package reconciliation

import (
	"strings"

	"route-master-backend/internal/models"
	"route-master-backend/internal/normalize"
)

// EmptyPlaceholder is how blank values show up in the change log.
const EmptyPlaceholder = "(vacío)"

// ApplyChanges copies the maestra and rewrites usuario plus weekday marks on
// every matched row from its compilado counterpart. Only real differences are
// logged; the ingested tables stay untouched.
func ApplyChanges(result *models.ReconciliationResult) (*models.Table, []models.ChangeEntry) {
	updated := result.Maestra.Clone()
	var log []models.ChangeEntry

	byRow := make(map[int]int, len(updated.Records))
	for i, rec := range updated.Records {
		byRow[rec.Row] = i
	}
	compByRow := make(map[int]models.RouteRecord, len(result.Compilado.Records))
	for _, rec := range result.Compilado.Records {
		compByRow[rec.Row] = rec
	}

	for _, o := range result.Outcomes {
		if !o.Matched() {
			continue
		}
		idx, ok := byRow[o.MaestraRow]
		if !ok {
			continue
		}
		target := updated.Records[idx]
		comp := compByRow[o.CompiladoRow]

		if nuevo := normalize.User(comp.Get(models.ColUsuario)); nuevo != "" {
			anterior := strings.TrimSpace(target.Get(models.ColUsuario))
			if strings.ToLower(anterior) != nuevo {
				target.Values[models.ColUsuario] = nuevo
				log = append(log, models.ChangeEntry{
					CenterCode: o.CenterCode,
					Field:      models.ColUsuario,
					OldValue:   anterior,
					NewValue:   nuevo,
					MatchKind:  o.Kind.String(),
				})
			}
		}

		for _, dia := range models.WeekdayColumns {
			if !result.Compilado.HasColumn(dia) {
				continue
			}
			nuevo := normalize.Day(comp.Get(dia))
			anterior := strings.TrimSpace(target.Get(dia))
			if anterior == nuevo {
				continue
			}
			target.Values[dia] = nuevo
			log = append(log, models.ChangeEntry{
				CenterCode: o.CenterCode,
				Field:      dia,
				OldValue:   orPlaceholder(anterior),
				NewValue:   orPlaceholder(nuevo),
				MatchKind:  o.Kind.String(),
			})
		}
	}

	return updated, log
}

func orPlaceholder(v string) string {
	if v == "" {
		return EmptyPlaceholder
	}
	return v
}
