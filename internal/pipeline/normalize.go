package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"retail-insights/internal/model"
	"retail-insights/pkg/utils"
)

const stageNormalize = "normalize"

// DateLayouts are tried in order for the date column (month-day-2digit-year).
var DateLayouts = []string{"01-02-06", "1-2-06"}

var columnNameReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeColumnName trims, lowercases and replaces spaces and hyphens
// with underscores.
func NormalizeColumnName(name string) string {
	return columnNameReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Normalize applies the schema rules in cfg to raw and returns a new dataset.
// Steps run in a fixed order; the first failing step aborts the whole stage.
func Normalize(raw model.Dataset, cfg model.SchemaConfig) (model.Dataset, error) {
	n := normalizer{cfg: cfg, lower: cases.Lower(language.Und)}

	ds := n.dropColumns(raw)
	ds, err := n.renameColumns(ds)
	if err != nil {
		return model.Dataset{}, err
	}

	for _, step := range []func(model.Dataset) (model.Dataset, error){
		n.coerceTypes,
		n.parseDates,
		n.deriveMonth,
		n.lowercaseText,
		n.remapStatus,
	} {
		if ds, err = step(ds); err != nil {
			return model.Dataset{}, err
		}
	}
	return ds, nil
}

type normalizer struct {
	cfg   model.SchemaConfig
	lower cases.Caser
}

// dropColumns removes configured columns and copies every record.
func (n normalizer) dropColumns(in model.Dataset) model.Dataset {
	drop := make(map[string]bool, len(n.cfg.DropColumns))
	for _, c := range n.cfg.DropColumns {
		drop[c] = true
		drop[strings.TrimSpace(c)] = true
	}

	out := model.Dataset{Records: make([]model.Record, len(in.Records))}
	for _, c := range in.Columns {
		if drop[c] || drop[strings.TrimSpace(c)] {
			continue
		}
		out.Columns = append(out.Columns, c)
	}
	for i, rec := range in.Records {
		r := make(model.Record, len(out.Columns))
		for _, c := range out.Columns {
			r[c] = rec[c]
		}
		out.Records[i] = r
	}
	return out
}

func (n normalizer) renameColumns(in model.Dataset) (model.Dataset, error) {
	renamed := make([]string, len(in.Columns))
	seen := make(map[string]string, len(in.Columns))
	for i, c := range in.Columns {
		name := NormalizeColumnName(c)
		if prev, dup := seen[name]; dup {
			return model.Dataset{}, unsupported(stageNormalize, "columns %q and %q both normalize to %q", prev, c, name)
		}
		seen[name] = c
		renamed[i] = name
	}

	out := model.Dataset{Columns: renamed, Records: make([]model.Record, len(in.Records))}
	for i, rec := range in.Records {
		r := make(model.Record, len(renamed))
		for j, c := range in.Columns {
			r[renamed[j]] = rec[c]
		}
		out.Records[i] = r
	}
	return out, nil
}

// coerceTypes infers a type for every undeclared column and strictly converts
// every column declared in the dtype map.
func (n normalizer) coerceTypes(ds model.Dataset) (model.Dataset, error) {
	declared := make(map[string]model.ColumnType, len(n.cfg.DtypeMap))
	for col, typ := range n.cfg.DtypeMap {
		t, ok := model.ParseColumnType(typ)
		if !ok {
			return model.Dataset{}, unsupported(stageNormalize, "unknown type %q for column %q", typ, col)
		}
		declared[NormalizeColumnName(col)] = t
	}

	for _, col := range ds.Columns {
		typ, ok := declared[col]
		if !ok {
			inferColumn(ds, col)
			continue
		}
		for i, rec := range ds.Records {
			v, err := coerceValue(rec[col], typ)
			if err != nil {
				return model.Dataset{}, newError(ErrTypeMismatch, stageNormalize, col, i, rec[col], err)
			}
			rec[col] = v
		}
	}
	return ds, nil
}

// inferColumn narrows a column of strings to int64, float64 or bool when
// every non-null value parses as that type.
func inferColumn(ds model.Dataset, col string) {
	var values []string
	for _, rec := range ds.Records {
		v := rec[col]
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return
		}
		values = append(values, s)
	}
	if len(values) == 0 {
		return
	}

	convert := func(parse func(string) (interface{}, bool)) bool {
		parsed := make([]interface{}, 0, len(values))
		for _, s := range values {
			v, ok := parse(s)
			if !ok {
				return false
			}
			parsed = append(parsed, v)
		}
		j := 0
		for _, rec := range ds.Records {
			if rec[col] == nil {
				continue
			}
			rec[col] = parsed[j]
			j++
		}
		return true
	}

	switch {
	case convert(func(s string) (interface{}, bool) { return utils.ParseInt(s) }):
	case convert(func(s string) (interface{}, bool) { return utils.ParseFloat(s) }):
	case convert(func(s string) (interface{}, bool) { return utils.ParseBool(s) }):
	}
}

func coerceValue(v interface{}, typ model.ColumnType) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case model.TypeString:
		return formatCell(v), nil
	case model.TypeInt:
		switch t := v.(type) {
		case int64:
			return t, nil
		case int:
			return int64(t), nil
		case float64:
			if i, ok := utils.ParseInt(strconv.FormatFloat(t, 'f', -1, 64)); ok {
				return i, nil
			}
		case string:
			if i, ok := utils.ParseInt(t); ok {
				return i, nil
			}
		}
	case model.TypeFloat:
		switch t := v.(type) {
		case string:
			if f, ok := utils.ParseFloat(t); ok {
				return f, nil
			}
		case bool, time.Time:
		default:
			if f, ok := utils.Numeric(t); ok {
				return f, nil
			}
		}
	case model.TypeBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if b, ok := utils.ParseBool(t); ok {
				return b, nil
			}
		}
	case model.TypeDatetime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			if d, ok := parseDate(t); ok {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, typ)
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (n normalizer) parseDates(ds model.Dataset) (model.Dataset, error) {
	if !ds.HasColumn(model.ColDate) {
		return model.Dataset{}, newError(ErrDateParse, stageNormalize, model.ColDate, -1, nil, fmt.Errorf("column not found"))
	}
	for i, rec := range ds.Records {
		switch v := rec[model.ColDate].(type) {
		case nil, time.Time:
		case string:
			t, ok := parseDate(v)
			if !ok {
				return model.Dataset{}, newError(ErrDateParse, stageNormalize, model.ColDate, i, v, nil)
			}
			rec[model.ColDate] = t
		default:
			return model.Dataset{}, newError(ErrDateParse, stageNormalize, model.ColDate, i, v, fmt.Errorf("unexpected %T", v))
		}
	}
	return ds, nil
}

func (n normalizer) deriveMonth(ds model.Dataset) (model.Dataset, error) {
	ds.Columns = ds.WithColumn(model.ColMonth)
	for _, rec := range ds.Records {
		t, ok := rec[model.ColDate].(time.Time)
		if !ok {
			rec[model.ColMonth] = nil
			continue
		}
		rec[model.ColMonth] = strings.ToLower(t.Month().String())
	}
	return ds, nil
}

func (n normalizer) lowercaseText(ds model.Dataset) (model.Dataset, error) {
	for _, rec := range ds.Records {
		for k, v := range rec {
			if s, ok := v.(string); ok {
				rec[k] = n.lower.String(s)
			}
		}
	}
	return ds, nil
}

// remapStatus matches mapping keys case-insensitively because the text step
// has already lowercased every status cell.
func (n normalizer) remapStatus(ds model.Dataset) (model.Dataset, error) {
	if len(n.cfg.StatusMapping) == 0 || !ds.HasColumn(model.ColStatus) {
		return ds, nil
	}
	mapping := make(map[string]string, len(n.cfg.StatusMapping))
	for from, to := range n.cfg.StatusMapping {
		mapping[n.lower.String(strings.TrimSpace(from))] = n.lower.String(strings.TrimSpace(to))
	}
	for _, rec := range ds.Records {
		s, ok := rec[model.ColStatus].(string)
		if !ok {
			continue
		}
		if to, ok := mapping[strings.TrimSpace(s)]; ok {
			rec[model.ColStatus] = to
		}
	}
	return ds, nil
}

// formatCell renders a typed cell the way it is written to delimited files.
func formatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}
