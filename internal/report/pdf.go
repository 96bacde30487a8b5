package report

import (
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"route-master-backend/internal/models"
	"route-master-backend/internal/normalize"
)

// Comparison layout: landscape A4, 5 match groups per page, three rows per
// group (applied values, original master row, compilado source row).
const (
	groupsPerPage = 5
	rowHeight     = 5.0
	usableWidth   = 287.0
	maxCellRunes  = 50
)

var reportColumns = []string{
	"origen", models.ColRegion, models.ColCustomer, models.ColFormato,
	models.ColCenterCode, models.ColCenterDesc, models.ColRol, models.ColUsuario,
	"lunes", "martes", "miercoles", "jueves", "viernes", "sabado",
}

var shortHeaders = []string{
	"Origen", "Región", "Cliente", "Formato", "Código",
	"Centro", "Rol", "Usuario", "L", "M", "X", "J", "V", "S",
}

// Relative column widths; scaled to the usable page width.
var colProportions = []float64{6, 7, 7, 7, 5, 12, 6, 12, 3, 3, 3, 3, 3, 3}

// Fields whose differences get the red highlight.
var comparableFields = []string{
	models.ColRegion, models.ColCustomer, models.ColFormato, models.ColCenterCode,
	models.ColCenterDesc, models.ColUsuario,
	"lunes", "martes", "miercoles", "jueves", "viernes", "sabado",
}

type rgb struct{ r, g, b int }

var (
	colorModified = rgb{200, 230, 201} // applied values, light green
	colorDiff     = rgb{255, 205, 210} // differing cell, light red
	colorMaestra  = rgb{227, 242, 253} // master row, light blue
	colorComp     = rgb{255, 243, 224} // compilado row, light orange
	colorHeader   = rgb{25, 118, 210}
)

// WriteComparisonPDF renders the matched pairs side by side with differing
// cells highlighted, one legend up front and repeated table headers per page.
func WriteComparisonPDF(result *models.ReconciliationResult, title, path string) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(5, 10, 5)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()

	widths := columnWidths()
	matches := result.MatchedOutcomes()

	maestraByRow := make(map[int]models.RouteRecord, len(result.Maestra.Records))
	for _, rec := range result.Maestra.Records {
		maestraByRow[rec.Row] = rec
	}
	compByRow := make(map[int]models.RouteRecord, len(result.Compilado.Records))
	for _, rec := range result.Compilado.Records {
		compByRow[rec.Row] = rec
	}

	// Title and legend.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(usableWidth, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(128, 128, 128)
	sub := fmt.Sprintf("Generado: %s | Total comparaciones: %d", time.Now().Format("02/01/2006 15:04"), len(matches))
	pdf.CellFormat(usableWidth, 6, tr(sub), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	writeLegend(pdf, tr)
	pdf.Ln(5)

	writeTableHeader(pdf, tr, widths)
	for i, o := range matches {
		if i > 0 && i%groupsPerPage == 0 {
			pdf.AddPage()
			writeTableHeader(pdf, tr, widths)
		}
		maestraRec := maestraByRow[o.MaestraRow]
		compRec := compByRow[o.CompiladoRow]
		diffs := diffFields(maestraRec, compRec)

		writeDataRow(pdf, tr, widths, "MODIFICADO", compRec, colorModified, diffs)
		writeDataRow(pdf, tr, widths, "MAESTRA", maestraRec, colorMaestra, nil)
		writeDataRow(pdf, tr, widths, "COMPILADO", compRec, colorComp, nil)

		// Thick rule closing each group.
		x, y := pdf.GetXY()
		pdf.SetLineWidth(0.6)
		pdf.Line(x, y, x+usableWidth, y)
		pdf.SetLineWidth(0.2)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("generando PDF de comparación: %w", err)
	}
	return nil
}

func columnWidths() []float64 {
	var total float64
	for _, p := range colProportions {
		total += p
	}
	widths := make([]float64, len(colProportions))
	for i, p := range colProportions {
		widths[i] = p / total * usableWidth
	}
	return widths
}

func writeLegend(pdf *fpdf.Fpdf, tr func(string) string) {
	entries := []struct {
		label string
		desc  string
		fill  rgb
	}{
		{"MODIFICADO", "Valor que se aplica (cambio detectado)", colorModified},
		{"MAESTRA", "Fila original de Maestra de Rutas", colorMaestra},
		{"COMPILADO", "Fila del archivo Compilado", colorComp},
		{"Rojo", "Celda con diferencia detectada", colorDiff},
	}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(20, 5, tr("Leyenda:"), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, e := range entries {
		pdf.SetX(25)
		pdf.SetFillColor(e.fill.r, e.fill.g, e.fill.b)
		pdf.CellFormat(28, 5, tr(e.label), "1", 0, "C", true, 0, "")
		pdf.CellFormat(80, 5, tr(e.desc), "", 1, "L", false, 0, "")
	}
}

func writeTableHeader(pdf *fpdf.Fpdf, tr func(string) string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 7)
	pdf.SetFillColor(colorHeader.r, colorHeader.g, colorHeader.b)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range shortHeaders {
		pdf.CellFormat(widths[i], rowHeight, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(rowHeight)
	pdf.SetTextColor(0, 0, 0)
}

func writeDataRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, origin string, rec models.RouteRecord, fill rgb, diffs map[string]bool) {
	for i, col := range reportColumns {
		text := origin
		bold := i == 0
		cellFill := fill
		if i > 0 {
			text = rec.Get(col)
			if diffs[col] {
				cellFill = colorDiff
				bold = true
			}
		}
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 6)
		pdf.SetFillColor(cellFill.r, cellFill.g, cellFill.b)
		pdf.CellFormat(widths[i], rowHeight, tr(truncate(text, maxCellRunes)), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(rowHeight)
}

// diffFields returns the comparable fields whose tolerant normalization
// differs between the two rows.
func diffFields(maestra, compilado models.RouteRecord) map[string]bool {
	diffs := map[string]bool{}
	for _, f := range comparableFields {
		if normalize.Mark(maestra.Get(f)) != normalize.Mark(compilado.Get(f)) {
			diffs[f] = true
		}
	}
	return diffs
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
