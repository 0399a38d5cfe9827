package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"retail-insights/internal/model"
)

func processedRow() model.Dataset {
	ds := model.NewDataset()
	rec := model.Record{}
	for _, f := range ProcessedSchema {
		ds.Columns = append(ds.Columns, f.Column)
	}
	rec["order_id"] = "405-1"
	rec["date"] = time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)
	for _, c := range []string{"status", "fulfilment", "sales_channel", "style", "sku", "category", "size", "ship_city", "ship_state"} {
		rec[c] = "x"
	}
	rec["qty"] = int64(1)
	rec["amount"] = 10.0
	rec["ship_postal_code"] = int64(400081)
	rec["b2b"] = false
	ds.Records = append(ds.Records, rec)
	return ds
}

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, ValidateSchema(processedRow()))

	// only the first row is inspected
	ds := processedRow()
	ds.Records = append(ds.Records, model.Record{"qty": "many"})
	assert.NoError(t, ValidateSchema(ds))

	ds = processedRow()
	ds.Records[0]["qty"] = "many"
	assert.ErrorIs(t, ValidateSchema(ds), ErrTypeMismatch)

	ds = processedRow()
	ds.Records[0]["amount"] = int64(10)
	assert.NoError(t, ValidateSchema(ds))

	ds = processedRow()
	ds.Columns = ds.Columns[1:]
	assert.ErrorIs(t, ValidateSchema(ds), ErrMissingColumn)

	assert.ErrorIs(t, ValidateSchema(model.NewDataset("sku")), ErrEmptyInput)
}
