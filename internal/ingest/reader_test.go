package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"route-master-backend/internal/models"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var maestraHeader = []interface{}{
	"region_desc", "customer_desc", "formato", "center_code", "center_desc",
	"rol", "usuario", "lunes", "martes",
}

func TestReadMaestra(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		maestraHeader,
		{"Centro", "CENCOSUD", "Jumbo", "J-100", "Jumbo Costanera", "Supervisor", "juan.perez@castano.cl", "X", ""},
		{"Sur", "SMU", "Super 10", "S-200", "Super 10 Osorno", "Supervisor", "ana.soto@castano.cl", "", "X"},
	})

	table, err := ReadMaestra(buf)
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	assert.True(t, table.HasColumn(models.ColRol))
	assert.Equal(t, 0, table.Records[0].Row)
	assert.Equal(t, "J-100", table.Records[0].Get(models.ColCenterCode))
	assert.Equal(t, "X", table.Records[0].Get("lunes"))
	assert.Equal(t, 1, table.Records[1].Row)
	assert.Equal(t, "Super 10 Osorno", table.Records[1].Get(models.ColCenterDesc))
}

func TestReadMaestraMissingColumns(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"region_desc", "customer_desc", "formato", "center_code"},
		{"Centro", "CENCOSUD", "Jumbo", "J-100"},
	})

	_, err := ReadMaestra(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columnas requeridas ausentes")
	assert.Contains(t, err.Error(), models.ColCenterDesc)
	assert.Contains(t, err.Error(), models.ColRol)
}

func TestReadMaestraSkipsBlankRows(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		maestraHeader,
		{"Centro", "CENCOSUD", "Jumbo", "J-100", "Jumbo Costanera", "Supervisor", "u@castano.cl", "", ""},
		{"", "", "", "", "", "", "", "", ""},
		{"Sur", "SMU", "Super 10", "S-200", "Super 10 Osorno", "Supervisor", "a@castano.cl", "", ""},
	})

	table, err := ReadMaestra(buf)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	// Row numbering stays dense after the blank.
	assert.Equal(t, 1, table.Records[1].Row)
}

func TestReadCompiladoLowercasesHeaders(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"REGION_DESC", "Customer_Desc", "FORMATO", "Center_Code", "CENTER_DESC", "Usuario", "LUNES"},
		{"Centro", "CENCOSUD", "Jumbo", "J-100", "Jumbo Costanera", "Maria Lopez", "X"},
	})

	table, err := ReadCompilado(buf)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "J-100", table.Records[0].Get(models.ColCenterCode))
	assert.Equal(t, "Maria Lopez", table.Records[0].Get(models.ColUsuario))
	assert.Equal(t, "X", table.Records[0].Get("lunes"))
}

func TestReadCompiladoShortRowsPadded(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"region_desc", "customer_desc", "formato", "center_code", "center_desc", "usuario", "lunes"},
		{"Centro", "CENCOSUD", "Jumbo", "J-100", "Jumbo Costanera"},
	})

	table, err := ReadCompilado(buf)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "", table.Records[0].Get(models.ColUsuario))
	assert.Equal(t, "", table.Records[0].Get("lunes"))
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := ReadMaestra(bytes.NewBufferString("esto no es un xlsx"))
	require.Error(t, err)
}
