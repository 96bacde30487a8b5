// Package ingest parses the uploaded .xlsx files into tables. Validation is
// strict: a sheet missing required columns is rejected with an error naming
// them, and nothing partial is handed to the matcher.
package ingest

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"route-master-backend/internal/models"
)

var maestraRequired = []string{
	models.ColRegion, models.ColCustomer, models.ColFormato,
	models.ColCenterCode, models.ColCenterDesc, models.ColRol, models.ColUsuario,
}

var compiladoRequired = []string{
	models.ColRegion, models.ColCustomer, models.ColFormato,
	models.ColCenterCode, models.ColCenterDesc, models.ColUsuario,
}

// ReadMaestra parses the master route sheet. Headers are trimmed but kept
// as-is; the master is the canonical schema.
func ReadMaestra(r io.Reader) (*models.Table, error) {
	return readTable(r, "maestra", maestraRequired, false)
}

// ReadCompilado parses the compiled sheet. Its headers arrive in whatever
// casing the analyst exported, so they are lowercased first.
func ReadCompilado(r io.Reader) (*models.Table, error) {
	return readTable(r, "compilado", compiladoRequired, true)
}

// ReadMaestraFile is ReadMaestra over a path.
func ReadMaestraFile(path string) (*models.Table, error) {
	return readFile(path, ReadMaestra)
}

// ReadCompiladoFile is ReadCompilado over a path.
func ReadCompiladoFile(path string) (*models.Table, error) {
	return readFile(path, ReadCompilado)
}

func readFile(path string, read func(io.Reader) (*models.Table, error)) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abriendo %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}

func readTable(r io.Reader, name string, required []string, lowerHeaders bool) (*models.Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: archivo Excel ilegible: %w", name, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: el archivo no contiene hojas", name)
	}
	sheet := sheets[0]

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: leyendo hoja %q: %w", name, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: hoja %q sin encabezados", name, sheet)
	}

	columns := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		h = strings.TrimSpace(h)
		if lowerHeaders {
			h = strings.ToLower(h)
		}
		columns = append(columns, h)
	}

	if missing := missingColumns(columns, required); len(missing) > 0 {
		return nil, fmt.Errorf("%s: columnas requeridas ausentes: %s", name, strings.Join(missing, ", "))
	}

	table := &models.Table{Name: sheet, Columns: columns}
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		values := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(row) {
				values[col] = row[i]
			} else {
				values[col] = ""
			}
		}
		table.Records = append(table.Records, models.RouteRecord{
			Row:    len(table.Records),
			Values: values,
		})
	}
	return table, nil
}

func missingColumns(columns, required []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var missing []string
	for _, c := range required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
