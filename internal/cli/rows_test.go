package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
)

func testRows() ([]ir.Field, []generator.Row) {
	name, price := ir.NewField("name"), ir.NewField("price")
	rows := []generator.Row{
		{Seq: 1, Data: ir.NewDataBag(map[ir.Field]ir.IRValue{
			name:  ir.NewIRString("Smith, Jo"),
			price: ir.MustParseIRNumber("0.10"),
		})},
		{Seq: 2, Data: ir.NewDataBag(map[ir.Field]ir.IRValue{
			name:  ir.IRNull{},
			price: ir.NewIRInt(7),
		})},
	}
	return []ir.Field{price, name}, rows
}

func writeAll(t *testing.T, format string) string {
	t.Helper()
	columns, rows := testRows()
	buf := &bytes.Buffer{}
	w, err := NewRowWriter(format, buf, columns)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestRowWriter_JSON(t *testing.T) {
	assert.Equal(t,
		"{\"name\":\"Smith, Jo\",\"price\":0.10}\n{\"name\":null,\"price\":7}\n",
		writeAll(t, "json"))
}

func TestRowWriter_CSV(t *testing.T) {
	assert.Equal(t,
		"price,name\n0.10,\"Smith, Jo\"\n7,\n",
		writeAll(t, "csv"))
}

func TestRowWriter_CSVHeaderWithoutRows(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewRowWriter("csv", buf, []ir.Field{ir.NewField("a"), ir.NewField("b")})
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	assert.Equal(t, "a,b\n", buf.String())
}

func TestRowWriter_UnknownFormat(t *testing.T) {
	_, err := NewRowWriter("xml", &bytes.Buffer{}, nil)
	assert.EqualError(t, err, `unknown output format "xml"`)
}
