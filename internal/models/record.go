package models

// Column names shared by both spreadsheets. Compilado headers are lowercased
// on ingest so lookups are always against these keys.
const (
	ColRegion     = "region_desc"
	ColCustomer   = "customer_desc"
	ColFormato    = "formato"
	ColCenterCode = "center_code"
	ColCenterDesc = "center_desc"
	ColRol        = "rol"
	ColUsuario    = "usuario"
)

// WeekdayColumns are the day marks that may be rewritten from the compilado.
var WeekdayColumns = []string{"lunes", "martes", "miercoles", "jueves", "viernes", "sabado"}

// RolModificable is the only role whose rows the matcher may update.
const RolModificable = "Supervisor"

// RouteRecord is one spreadsheet row. Row is the 0-based position within the
// sheet body (header excluded) and doubles as the record identity inside a run.
type RouteRecord struct {
	Row    int
	Values map[string]string
}

// Get returns the raw cell value for a column, or "" when absent.
func (r RouteRecord) Get(col string) string {
	return r.Values[col]
}

// Clone returns a deep copy so updates never touch the ingested table.
func (r RouteRecord) Clone() RouteRecord {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return RouteRecord{Row: r.Row, Values: values}
}

// Table is an ordered, column-aware view of one uploaded sheet.
type Table struct {
	Name    string
	Columns []string
	Records []RouteRecord
}

// HasColumn reports whether the sheet declared the given header.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Clone deep-copies the table; change application works on the copy.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Records: make([]RouteRecord, len(t.Records)),
	}
	for i, rec := range t.Records {
		out.Records[i] = rec.Clone()
	}
	return out
}
