package model

import "time"

// LoadDataRequest is the body for POST /load-data/
type LoadDataRequest struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"`
}

// MessageResponse is returned by the load and process endpoints.
type MessageResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	RunID      string `json:"run_id,omitempty"`
	Rows       int    `json:"rows"`
}

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DailyRevenueResponse is one row of GET /insights/daily-revenue
type DailyRevenueResponse struct {
	Date          time.Time `json:"date"`
	RevenuePerDay string    `json:"revenue_per_day"`
	ShipState     string    `json:"ship_state,omitempty"`
	Category      string    `json:"category,omitempty"`
	SKU           string    `json:"sku,omitempty"`
}

// TopSKUResponse is one row of GET /insights/top-skus
type TopSKUResponse struct {
	SKU             string `json:"sku"`
	RevenuePerMonth string `json:"revenue_per_month"`
	OrderCount      int64  `json:"order_count"`
	Month           string `json:"month,omitempty"`
}

// ASPOrderCountResponse is one row of GET /insights/asp-order-count
type ASPOrderCountResponse struct {
	SKU                 string `json:"sku,omitempty"`
	Category            string `json:"category,omitempty"`
	AverageSellingPrice string `json:"average_selling_price"`
	OrderCount          int64  `json:"order_count"`
}
