package pipeline

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"retail-insights/internal/model"
	"retail-insights/pkg/utils"
)

const stageSanitize = "sanitize"

var sanitizeRequired = []string{
	model.ColSKU, model.ColAmount, model.ColStatus,
	model.ColShipCity, model.ColShipState, model.ColShipPostal,
}

var shipColumns = []string{model.ColShipCity, model.ColShipState, model.ColShipPostal}

// Sanitize removes duplicates and cancelled orders, fills missing amounts with
// the per-SKU mode and drops rows without a complete shipping address.
// Running it on its own output returns the same rows.
func Sanitize(data model.Dataset) (model.Dataset, error) {
	for _, c := range sanitizeRequired {
		if !data.HasColumn(c) {
			return model.Dataset{}, missingColumn(stageSanitize, c)
		}
	}

	ds := dedupe(data)
	ds = ds.Filter(func(r model.Record) bool {
		s, _ := r.String(model.ColStatus)
		return s != model.StatusCancelled
	})
	if err := imputeAmounts(ds); err != nil {
		return model.Dataset{}, err
	}
	ds = ds.Filter(func(r model.Record) bool {
		for _, c := range shipColumns {
			if r.IsNull(c) {
				return false
			}
		}
		return true
	})
	return dedupe(ds), nil
}

// rowHash fingerprints every cell of a record in column order.
func rowHash(h *xxh3.Hasher, columns []string, r model.Record) uint64 {
	h.Reset()
	for _, c := range columns {
		_, _ = h.WriteString(model.CellKey(r[c]))
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

func sameRow(columns []string, a, b model.Record) bool {
	for _, c := range columns {
		if model.CellKey(a[c]) != model.CellKey(b[c]) {
			return false
		}
	}
	return true
}

// dedupe keeps the first occurrence of every distinct row. Only the xxh3
// fingerprint of each kept row is held; a fingerprint hit is confirmed
// against the kept records themselves.
func dedupe(in model.Dataset) model.Dataset {
	out := model.NewDataset(in.Columns...)
	buckets := make(map[uint64][]int, len(in.Records))
	h := xxh3.New()
rows:
	for _, rec := range in.Records {
		sum := rowHash(h, in.Columns, rec)
		for _, idx := range buckets[sum] {
			if sameRow(in.Columns, out.Records[idx], rec) {
				continue rows
			}
		}
		buckets[sum] = append(buckets[sum], len(out.Records))
		out.Records = append(out.Records, rec.Clone())
	}
	return out
}

// imputeAmounts fills null amounts in place. ds must already be a private copy.
func imputeAmounts(ds model.Dataset) error {
	counts := make(map[string]map[float64]int)
	for i, rec := range ds.Records {
		v := rec[model.ColAmount]
		if v == nil {
			continue
		}
		f, ok := amountValue(v)
		if !ok {
			return newError(ErrTypeMismatch, stageSanitize, model.ColAmount, i, v, fmt.Errorf("amount must be numeric"))
		}
		rec[model.ColAmount] = f
		group := model.CellKey(rec[model.ColSKU])
		if counts[group] == nil {
			counts[group] = make(map[float64]int)
		}
		counts[group][f]++
	}

	modes := make(map[string]float64, len(counts))
	for group, freq := range counts {
		modes[group] = mode(freq)
	}
	for _, rec := range ds.Records {
		if rec[model.ColAmount] != nil {
			continue
		}
		// zero when the SKU has no known amount
		rec[model.ColAmount] = modes[model.CellKey(rec[model.ColSKU])]
	}
	return nil
}

func amountValue(v interface{}) (float64, bool) {
	switch v.(type) {
	case string, bool:
		return 0, false
	}
	return utils.Numeric(v)
}

// mode returns the most frequent value, the smallest one on ties.
func mode(freq map[float64]int) float64 {
	var best float64
	bestCount := 0
	for v, n := range freq {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}
