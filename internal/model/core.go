package model

import "strings"

// ColumnType is a declared target type for a column in SchemaConfig.DtypeMap.
type ColumnType string

const (
	TypeString   ColumnType = "string"
	TypeInt      ColumnType = "int"
	TypeFloat    ColumnType = "float"
	TypeBool     ColumnType = "bool"
	TypeDatetime ColumnType = "datetime"
)

// ParseColumnType accepts the canonical names plus a few common aliases
// (int64, float64, boolean, date, str).
func ParseColumnType(s string) (ColumnType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return TypeString, true
	case "int", "int64", "integer":
		return TypeInt, true
	case "float", "float64", "double":
		return TypeFloat, true
	case "bool", "boolean":
		return TypeBool, true
	case "datetime", "date", "timestamp":
		return TypeDatetime, true
	}
	return "", false
}

// Well-known column names after normalization.
const (
	ColOrderID      = "order_id"
	ColDate         = "date"
	ColMonth        = "month"
	ColStatus       = "status"
	ColSKU          = "sku"
	ColCategory     = "category"
	ColQty          = "qty"
	ColAmount       = "amount"
	ColTotalAmount  = "total_amount"
	ColShipCity     = "ship_city"
	ColShipState    = "ship_state"
	ColShipPostal   = "ship_postal_code"
	ColB2B          = "b2b"
	ColFulfilment   = "fulfilment"
	ColSalesChannel = "sales_channel"
	ColStyle        = "style"
	ColSize         = "size"
)

// Aggregate output columns.
const (
	ColRevenuePerDay       = "revenue_per_day"
	ColRevenuePerMonth     = "revenue_per_month"
	ColOrderCount          = "order_count"
	ColAverageSellingPrice = "average_selling_price"
)

// Canonical statuses referenced by the sanitizer and the aggregator.
const (
	StatusCancelled = "cancelled"
	StatusReturned  = "returned"
)

// SchemaConfig holds the column rules applied by the schema normalizer.
type SchemaConfig struct {
	DropColumns   []string          `json:"drop_columns" mapstructure:"drop_columns"`
	DtypeMap      map[string]string `json:"dtype_columns" mapstructure:"dtype_columns"`
	StatusMapping map[string]string `json:"status_mapping" mapstructure:"status_mapping"`
}

// Source is one delimited input file.
type Source struct {
	Path      string `json:"path"`
	Encoding  string `json:"encoding,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
}
