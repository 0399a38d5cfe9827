package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retail-insights/internal/model"
)

const stageAggregate = "aggregate"

// Dimension is the optional second key of the revenue-per-day report.
type Dimension string

const (
	DimNone      Dimension = ""
	DimShipState Dimension = model.ColShipState
	DimCategory  Dimension = model.ColCategory
	DimSKU       Dimension = model.ColSKU
)

// ParseDimension maps a column name to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.TrimSpace(s)); d {
	case DimNone, DimShipState, DimCategory, DimSKU:
		return d, nil
	}
	return DimNone, unsupported(stageAggregate, "revenue per day cannot be grouped by %q", s)
}

// group accumulates one output row.
type group struct {
	key    []interface{}
	sum    decimal.Decimal
	n      int64 // non-null total_amount values
	orders int64 // non-null order ids
}

func (g *group) mean() decimal.Decimal {
	if g.n == 0 {
		return decimal.Zero
	}
	return g.sum.Div(decimal.NewFromInt(g.n))
}

// groupBy buckets rows by keys and returns the groups in ascending key order.
// Rows with a null key cell are left out.
func groupBy(data model.Dataset, keys []string) ([]*group, error) {
	for _, c := range append([]string{model.ColTotalAmount}, keys...) {
		if !data.HasColumn(c) {
			return nil, missingColumn(stageAggregate, c)
		}
	}

	index := make(map[string]*group)
	var groups []*group
rows:
	for i, rec := range data.Records {
		key := make([]interface{}, len(keys))
		var id strings.Builder
		for j, c := range keys {
			if rec[c] == nil {
				continue rows
			}
			key[j] = rec[c]
			id.WriteString(model.CellKey(rec[c]))
			id.WriteByte(0x1f)
		}

		g, ok := index[id.String()]
		if !ok {
			g = &group{key: key}
			index[id.String()] = g
			groups = append(groups, g)
		}

		if v := rec[model.ColTotalAmount]; v != nil {
			f, ok := amountValue(v)
			if !ok {
				return nil, newError(ErrTypeMismatch, stageAggregate, model.ColTotalAmount, i, v, fmt.Errorf("not a finite number"))
			}
			g.sum = g.sum.Add(decimal.NewFromFloat(f))
			g.n++
		}
		if rec[model.ColOrderID] != nil {
			g.orders++
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return compareKeys(groups[a].key, groups[b].key) < 0
	})
	return groups, nil
}

func compareKeys(a, b []interface{}) int {
	for i := range a {
		if c := compareCells(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareCells(a, b interface{}) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	default:
		xf, xok := amountValue(a)
		yf, yok := amountValue(b)
		if xok && yok {
			switch {
			case xf < yf:
				return -1
			case xf > yf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(model.CellKey(a), model.CellKey(b))
}

func keyRecord(keys []string, g *group) model.Record {
	r := make(model.Record, len(keys)+2)
	for i, c := range keys {
		r[c] = g.key[i]
	}
	return r
}

// RevenuePerDay sums total_amount per date, optionally split by dim.
// Returned orders are excluded; cancelled ones are counted if present.
func RevenuePerDay(data model.Dataset, dim Dimension) (model.Dataset, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return model.Dataset{}, err
	}
	if !data.HasColumn(model.ColStatus) {
		return model.Dataset{}, missingColumn(stageAggregate, model.ColStatus)
	}

	keys := []string{model.ColDate}
	if dim != DimNone {
		keys = append(keys, string(dim))
	}

	kept := data.Filter(func(r model.Record) bool {
		s, _ := r.String(model.ColStatus)
		return s != model.StatusReturned
	})
	groups, err := groupBy(kept, keys)
	if err != nil {
		return model.Dataset{}, err
	}

	out := model.NewDataset(append(keys, model.ColRevenuePerDay)...)
	for _, g := range groups {
		r := keyRecord(keys, g)
		r[model.ColRevenuePerDay] = FormatAmount(g.sum)
		out.Records = append(out.Records, r)
	}
	return out, nil
}

// TopSKUs ranks (sku, month) groups by revenue then order count, both
// descending, and returns at most n of them.
func TopSKUs(data model.Dataset, n int) (model.Dataset, error) {
	if n <= 0 {
		return model.Dataset{}, unsupported(stageAggregate, "top n must be positive, got %d", n)
	}

	keys := []string{model.ColSKU, model.ColMonth}
	groups, err := groupBy(data, keys)
	if err != nil {
		return model.Dataset{}, err
	}

	// groups arrive in key order, so a stable sort leaves ties ordered by key
	sort.SliceStable(groups, func(a, b int) bool {
		if c := groups[a].sum.Cmp(groups[b].sum); c != 0 {
			return c > 0
		}
		return groups[a].orders > groups[b].orders
	})
	if len(groups) > n {
		groups = groups[:n]
	}

	out := model.NewDataset(model.ColSKU, model.ColMonth, model.ColRevenuePerMonth, model.ColOrderCount)
	for _, g := range groups {
		r := keyRecord(keys, g)
		r[model.ColRevenuePerMonth] = FormatAmount(g.sum)
		r[model.ColOrderCount] = g.orders
		out.Records = append(out.Records, r)
	}
	return out, nil
}

// ASPAndCount computes the average selling price and order count per key
// set. Accepted key sets are sku, category, and sku with category.
func ASPAndCount(data model.Dataset, keys ...string) (model.Dataset, error) {
	if err := checkASPKeys(keys); err != nil {
		return model.Dataset{}, err
	}

	groups, err := groupBy(data, keys)
	if err != nil {
		return model.Dataset{}, err
	}

	out := model.NewDataset(append(append([]string{}, keys...), model.ColAverageSellingPrice, model.ColOrderCount)...)
	for _, g := range groups {
		r := keyRecord(keys, g)
		r[model.ColAverageSellingPrice] = FormatAmount(g.mean())
		r[model.ColOrderCount] = g.orders
		out.Records = append(out.Records, r)
	}
	return out, nil
}

func checkASPKeys(keys []string) error {
	switch strings.Join(keys, ",") {
	case model.ColSKU, model.ColCategory,
		model.ColSKU + "," + model.ColCategory,
		model.ColCategory + "," + model.ColSKU:
		return nil
	}
	return unsupported(stageAggregate, "average selling price cannot be grouped by %v", keys)
}
