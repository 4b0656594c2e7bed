package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend_ExtendsSchema(t *testing.T) {
	ds := New()
	ds.Append(map[string]string{"order_id": "A1", "amount": "10"})
	ds.Append(map[string]string{"order_id": "A2", "amount": "12", "coupon": "YES"})

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"amount", "order_id", "coupon"}, ds.Columns)
	assert.Equal(t, "", ds.Cell(0, "coupon"))
	assert.Equal(t, "YES", ds.Cell(1, "coupon"))
}

func TestLast(t *testing.T) {
	ds := New()
	_, ok := ds.Last()
	assert.False(t, ok)

	ds.Append(map[string]string{"order_id": "A1"})
	ds.Append(map[string]string{"order_id": "A2"})

	last, ok := ds.Last()
	require.True(t, ok)
	assert.Equal(t, "A2", last["order_id"])
}

func TestParquetRoundTrip(t *testing.T) {
	ds := New()
	ds.Append(map[string]string{"order_id": "A1", "amount": "10"})
	ds.Append(map[string]string{"order_id": "A2", "amount": "12", "coupon": "YES"})

	data, err := ds.EncodeParquet()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := DecodeParquet(data)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Len())
	assert.ElementsMatch(t, []string{"amount", "coupon", "order_id"}, got.Columns)
	assert.Equal(t, "A1", got.Cell(0, "order_id"))
	assert.Equal(t, "YES", got.Cell(1, "coupon"))

	// Row 0 predates the coupon column; its cell comes back absent.
	_, present := got.Rows[0]["coupon"]
	assert.False(t, present)
}

func TestEncodeParquet_EmptyDataset(t *testing.T) {
	_, err := New().EncodeParquet()
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	ds := New()
	ds.Append(map[string]string{"order_id": "A1", "amount": "10"})
	ds.Append(map[string]string{"order_id": "A2", "amount": ""})

	data, err := ds.EncodeXLSX()
	require.NoError(t, err)

	got, err := DecodeXLSX(data)
	require.NoError(t, err)

	assert.Equal(t, ds.Columns, got.Columns)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, "A1", got.Cell(0, "order_id"))
	assert.Equal(t, "", got.Cell(1, "amount"))
}

func TestFormatRegistry(t *testing.T) {
	f, err := ByName("parquet")
	require.NoError(t, err)
	assert.Equal(t, "dataset.parquet", f.FileName("dataset"))

	f, err = ByName("excel")
	require.NoError(t, err)
	assert.Equal(t, "dataset.xlsx", f.FileName("dataset"))
	assert.Contains(t, f.MIMEType, "spreadsheetml")

	_, err = ByName("csv")
	assert.Error(t, err)
}
