// Package report renders the three run artifacts: the updated master
// workbook, the KPI audit workbook and the visual comparison PDF. Each writer
// fails independently so one broken artifact never takes down the others.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"route-master-backend/internal/models"
	"route-master-backend/internal/normalize"
)

// MasterSheetName is the sheet the downstream planners expect.
const MasterSheetName = "Maestra_de_Rutas"

// WriteUpdatedMaestra saves the post-change master table as a workbook with
// the original column layout.
func WriteUpdatedMaestra(t *models.Table, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	wb.SetSheetName(wb.GetSheetName(0), MasterSheetName)
	if err := writeRow(wb, MasterSheetName, 1, toCells(t.Columns)); err != nil {
		return err
	}
	for i, rec := range t.Records {
		cells := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			cells[j] = rec.Get(col)
		}
		if err := writeRow(wb, MasterSheetName, i+2, cells); err != nil {
			return err
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("guardando maestra actualizada: %w", err)
	}
	return nil
}

// WriteKPIWorkbook writes the audit report: KPI summary plus the change,
// ambiguous and unmatched detail sheets, mirroring what the planners review
// after every load.
func WriteKPIWorkbook(kpis *models.KPIReport, changes []models.ChangeEntry, ambiguous, unmatched []models.MatchOutcome, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	const kpiSheet = "KPIs"
	wb.SetSheetName(wb.GetSheetName(0), kpiSheet)

	kpiRows := [][]interface{}{
		{"Métrica", "Valor"},
		{"Total filas en Compilado", kpis.TotalCompilado},
		{"Coincidencias exactas", kpis.ExactMatches},
		{"Coincidencias relativas", kpis.RelativeMatches},
		{"Total coincidencias", kpis.TotalMatches},
		{"Filas con cambios aplicados", kpis.RowsUpdated},
		{"Solo en Maestra", kpis.MaestraUnmatched},
		{"Solo en Compilado", kpis.CompiladoOnly},
		{"% Matching exacto", fmt.Sprintf("%.2f%%", kpis.PctExact)},
		{"% Matching relativo", fmt.Sprintf("%.2f%%", kpis.PctRelative)},
		{"% Total matching", fmt.Sprintf("%.2f%%", kpis.PctTotal)},
		{"% Filas actualizadas", fmt.Sprintf("%.2f%%", kpis.PctRowsUpdated)},
	}
	for i, row := range kpiRows {
		if err := writeRow(wb, kpiSheet, i+1, row); err != nil {
			return err
		}
	}

	if len(changes) > 0 {
		const sheet = "Detalle Cambios"
		if _, err := wb.NewSheet(sheet); err != nil {
			return fmt.Errorf("creando hoja %q: %w", sheet, err)
		}
		if err := writeRow(wb, sheet, 1, toCells([]string{"center_code", "campo", "valor_anterior", "valor_nuevo", "tipo_match"})); err != nil {
			return err
		}
		for i, ch := range changes {
			row := []interface{}{ch.CenterCode, ch.Field, ch.OldValue, ch.NewValue, ch.MatchKind}
			if err := writeRow(wb, sheet, i+2, row); err != nil {
				return err
			}
		}
	}

	if err := writeOutcomeSheet(wb, "Casos Ambiguos", ambiguous); err != nil {
		return err
	}
	if err := writeOutcomeSheet(wb, "Sin Coincidencia", unmatched); err != nil {
		return err
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("guardando reporte KPI: %w", err)
	}
	return nil
}

func writeOutcomeSheet(wb *excelize.File, sheet string, outcomes []models.MatchOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	if _, err := wb.NewSheet(sheet); err != nil {
		return fmt.Errorf("creando hoja %q: %w", sheet, err)
	}
	if err := writeRow(wb, sheet, 1, toCells([]string{"center_code", "digitos", "motivo"})); err != nil {
		return err
	}
	for i, o := range outcomes {
		row := []interface{}{o.CenterCode, normalize.Digits(o.CenterCode), o.Reason}
		if err := writeRow(wb, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(wb *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("escribiendo fila %d de %q: %w", row, sheet, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
