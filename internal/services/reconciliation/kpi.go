package reconciliation

import (
	"route-master-backend/internal/models"
	"route-master-backend/internal/normalize"
)

// AggregateKPIs reduces an outcome set plus its change log into the KPI
// report. Pure and deterministic: same outcomes, same report.
func AggregateKPIs(result *models.ReconciliationResult, changes []models.ChangeEntry) *models.KPIReport {
	kpis := &models.KPIReport{
		TotalCompilado: len(result.Compilado.Records),
		ChangeCount:    len(changes),
		ByRegion:       map[string]models.RegionKPI{},
	}

	compByRow := make(map[int]models.RouteRecord, len(result.Compilado.Records))
	for _, rec := range result.Compilado.Records {
		compByRow[rec.Row] = rec
	}

	updatedCodes := map[string]bool{}
	for _, o := range result.Outcomes {
		switch o.Kind {
		case models.MatchExact:
			kpis.ExactMatches++
			updatedCodes[o.CenterCode] = true
		case models.MatchRelative:
			kpis.RelativeMatches++
			updatedCodes[o.CenterCode] = true
		case models.MatchMaestraOnly:
			kpis.MaestraUnmatched++
			if o.Reason == models.ReasonAmbiguous {
				kpis.AmbiguousCount++
			}
		case models.MatchCompiladoOnly:
			kpis.CompiladoOnly++
		}

		// Regional slice follows the compilado side, which is what the
		// business reports against.
		if o.CompiladoRow < 0 {
			continue
		}
		region := normalize.Text(compByRow[o.CompiladoRow].Get(models.ColRegion))
		if region == "" {
			region = "sin region"
		}
		rk := kpis.ByRegion[region]
		rk.Compilado++
		switch o.Kind {
		case models.MatchExact:
			rk.Exact++
		case models.MatchRelative:
			rk.Relative++
		case models.MatchCompiladoOnly:
			rk.Unmatched++
		}
		kpis.ByRegion[region] = rk
	}

	kpis.TotalMatches = kpis.ExactMatches + kpis.RelativeMatches
	kpis.RowsUpdated = len(updatedCodes)

	if kpis.TotalCompilado > 0 {
		total := float64(kpis.TotalCompilado)
		kpis.PctExact = float64(kpis.ExactMatches) / total * 100
		kpis.PctRelative = float64(kpis.RelativeMatches) / total * 100
		kpis.PctTotal = float64(kpis.TotalMatches) / total * 100
		kpis.PctRowsUpdated = float64(kpis.RowsUpdated) / total * 100
	}
	return kpis
}
