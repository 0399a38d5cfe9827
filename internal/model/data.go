package model

import (
	"fmt"
	"time"
)

// Record is one row of a table keyed by column name. A nil value is a null cell.
type Record map[string]interface{}

// Dataset is an ordered table of records sharing one column list.
// Stages treat a Dataset as immutable and always return a new one.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(columns ...string) Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Dataset{Columns: cols, Records: make([]Record, 0)}
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// HasColumn reports whether name is one of the dataset's columns.
func (d Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of name in Columns, or -1.
func (d Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the column list and of every record map.
// Cell values are copied by value; none of the supported cell types are mutable.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Columns: make([]string, len(d.Columns)),
		Records: make([]Record, len(d.Records)),
	}
	copy(out.Columns, d.Columns)
	for i, rec := range d.Records {
		out.Records[i] = rec.Clone()
	}
	return out
}

// WithColumn returns a copy of the column list with name appended when missing.
func (d Dataset) WithColumn(name string) []string {
	cols := make([]string, len(d.Columns), len(d.Columns)+1)
	copy(cols, d.Columns)
	if !d.HasColumn(name) {
		cols = append(cols, name)
	}
	return cols
}

// Filter returns a new dataset holding copies of the records keep accepts.
func (d Dataset) Filter(keep func(Record) bool) Dataset {
	out := NewDataset(d.Columns...)
	for _, rec := range d.Records {
		if keep(rec) {
			out.Records = append(out.Records, rec.Clone())
		}
	}
	return out
}

// Values returns the distinct non-null values of a column in first-seen order.
func (d Dataset) Values(column string) []interface{} {
	seen := make(map[string]bool)
	var out []interface{}
	for _, rec := range d.Records {
		v := rec[column]
		if v == nil {
			continue
		}
		k := CellKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// Clone copies the record map.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the cell as a string and whether it was a non-null string.
func (r Record) String(column string) (string, bool) {
	s, ok := r[column].(string)
	return s, ok
}

// IsNull reports whether the column is missing or holds nil.
func (r Record) IsNull(column string) bool {
	return r[column] == nil
}

// CellKey renders a cell as a type-tagged string so that values of different
// types never compare equal (int64(1) and "1" are distinct).
func CellKey(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "n:"
	case string:
		return "s:" + t
	case int64:
		return fmt.Sprintf("i:%d", t)
	case int:
		return fmt.Sprintf("i:%d", t)
	case float64:
		return fmt.Sprintf("f:%v", t)
	case bool:
		return fmt.Sprintf("b:%t", t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("x:%v", t)
	}
}
