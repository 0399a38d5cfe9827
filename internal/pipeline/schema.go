package pipeline

import (
	"fmt"
	"math"
	"time"

	"retail-insights/internal/model"
)

const stageSchema = "schema"

// ProcessedSchema lists the columns a processed dataset must carry and the
// type each of them holds.
var ProcessedSchema = []struct {
	Column string
	Type   model.ColumnType
}{
	{model.ColOrderID, model.TypeString},
	{model.ColDate, model.TypeDatetime},
	{model.ColStatus, model.TypeString},
	{model.ColFulfilment, model.TypeString},
	{model.ColSalesChannel, model.TypeString},
	{model.ColStyle, model.TypeString},
	{model.ColSKU, model.TypeString},
	{model.ColCategory, model.TypeString},
	{model.ColSize, model.TypeString},
	{model.ColQty, model.TypeInt},
	{model.ColAmount, model.TypeFloat},
	{model.ColShipCity, model.TypeString},
	{model.ColShipState, model.TypeString},
	{model.ColShipPostal, model.TypeInt},
	{model.ColB2B, model.TypeBool},
}

// ValidateSchema checks the first record of a processed dataset against
// ProcessedSchema.
func ValidateSchema(ds model.Dataset) error {
	if ds.Len() == 0 {
		return newError(ErrEmptyInput, stageSchema, "", -1, nil, fmt.Errorf("no rows to validate"))
	}
	first := ds.Records[0]

	for _, field := range ProcessedSchema {
		if !ds.HasColumn(field.Column) {
			return missingColumn(stageSchema, field.Column)
		}
		val := first[field.Column]
		if !matchesType(val, field.Type) {
			return newError(ErrTypeMismatch, stageSchema, field.Column, 0, val,
				fmt.Errorf("field %s must be %s, got %T", field.Column, field.Type, val))
		}
	}
	return nil
}

func matchesType(v interface{}, typ model.ColumnType) bool {
	switch typ {
	case model.TypeString:
		_, ok := v.(string)
		return ok
	case model.TypeDatetime:
		_, ok := v.(time.Time)
		return ok
	case model.TypeBool:
		_, ok := v.(bool)
		return ok
	case model.TypeInt:
		switch t := v.(type) {
		case int64, int:
			return true
		case float64:
			return t == math.Trunc(t)
		}
	case model.TypeFloat:
		switch v.(type) {
		case float64, int64, int:
			return true
		}
	}
	return false
}
