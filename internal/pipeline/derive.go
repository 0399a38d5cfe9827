package pipeline

import (
	"fmt"
	"math"

	"retail-insights/internal/model"
)

const stageDerive = "derive"

// DeriveTotalAmount sets total_amount = amount * qty on every row. Any value
// already present in the column is recomputed.
func DeriveTotalAmount(data model.Dataset) (model.Dataset, error) {
	for _, c := range []string{model.ColAmount, model.ColQty} {
		if !data.HasColumn(c) {
			return model.Dataset{}, missingColumn(stageDerive, c)
		}
	}

	out := model.Dataset{
		Columns: data.WithColumn(model.ColTotalAmount),
		Records: make([]model.Record, len(data.Records)),
	}
	for i, rec := range data.Records {
		amount, err := operand(rec, model.ColAmount, i)
		if err != nil {
			return model.Dataset{}, err
		}
		qty, err := operand(rec, model.ColQty, i)
		if err != nil {
			return model.Dataset{}, err
		}
		total := amount * qty
		if math.IsInf(total, 0) || math.IsNaN(total) {
			return model.Dataset{}, newError(ErrTypeMismatch, stageDerive, model.ColTotalAmount, i, total,
				fmt.Errorf("amount %v times qty %v is out of range", amount, qty))
		}
		r := rec.Clone()
		r[model.ColTotalAmount] = total
		out.Records[i] = r
	}
	return out, nil
}

func operand(rec model.Record, col string, row int) (float64, error) {
	v := rec[col]
	if v == nil {
		return 0, newError(ErrTypeMismatch, stageDerive, col, row, nil, fmt.Errorf("null operand"))
	}
	f, ok := amountValue(v)
	if !ok {
		return 0, newError(ErrTypeMismatch, stageDerive, col, row, v, fmt.Errorf("not numeric"))
	}
	return f, nil
}
