package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"retail-insights/internal/model"
	"retail-insights/internal/pipeline"
	"retail-insights/internal/store"
)

const (
	defaultTopN = 10
	maxTopN     = 100
	runsLimit   = 50
)

// Processor runs the processing stages over a raw dataset.
type Processor interface {
	Process(ctx context.Context, source string, raw model.Dataset) (model.Dataset, model.RunSummary, error)
}

// RunStore reads recorded runs.
type RunStore interface {
	GetRun(ctx context.Context, runID string) (model.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
}

// Handler serves the load, process and insight endpoints over one shared State.
type Handler struct {
	log       *slog.Logger
	processor Processor
	readOpts  pipeline.ReadOptions
	runs      RunStore
	state     *State
}

// Option configures a Handler.
type Option func(*Handler)

// WithReadOptions sets the encoding and delimiter used by load-data.
func WithReadOptions(opts pipeline.ReadOptions) Option {
	return func(h *Handler) { h.readOpts = opts }
}

// WithRunStore enables the run history endpoints.
func WithRunStore(rs RunStore) Option {
	return func(h *Handler) { h.runs = rs }
}

// New creates a Handler.
func New(log *slog.Logger, processor Processor, opts ...Option) *Handler {
	h := &Handler{log: log, processor: processor, state: &State{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HasRunStore reports whether the run history endpoints are available.
func (h *Handler) HasRunStore() bool { return h.runs != nil }

// requestError is a failed precondition or bad input with its HTTP status.
type requestError struct {
	status int
	detail string
}

func (e *requestError) Error() string { return e.detail }

func badRequest(format string, args ...interface{}) *requestError {
	return &requestError{status: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err onto a status code and writes {"detail": ...}.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		h.log.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, model.ErrorResponse{Detail: err.Error()})
}

func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, store.ErrRunNotFound), errors.Is(err, pipeline.ErrFileNotFound):
		return http.StatusNotFound
	case pipeline.Kind(err) != nil:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) requireRaw() (model.Dataset, string, error) {
	ds, source, ok := h.state.Raw()
	if !ok {
		return model.Dataset{}, "", &requestError{status: http.StatusConflict, detail: "No data loaded. Please load data first."}
	}
	return ds, source, nil
}

func (h *Handler) requireProcessed() (model.Dataset, error) {
	ds, _, ok := h.state.Processed()
	if !ok {
		return model.Dataset{}, &requestError{status: http.StatusConflict, detail: "No processed data available. Please process data first."}
	}
	return ds, nil
}

// validateColumnValue checks that value occurs in column of ds.
func validateColumnValue(ds model.Dataset, column, value string) error {
	if !ds.HasColumn(column) {
		return badRequest("Column %s is not available in the processed data.", column)
	}
	for _, rec := range ds.Records {
		if s, ok := rec.String(column); ok && s == value {
			return nil
		}
	}
	return badRequest("Invalid %s. Please check the available %ss.", column, column)
}

// LoadData reads a CSV file into the raw slot
// @Summary Load data
// @Description Read a delimited sales report from a server-side path
// @Tags data
// @Accept json
// @Produce json
// @Param request body model.LoadDataRequest true "File to load"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse "Unreadable or empty file"
// @Failure 404 {object} model.ErrorResponse "File not found"
// @Router /load-data/ [post]
func (h *Handler) LoadData(w http.ResponseWriter, r *http.Request) {
	var req model.LoadDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		h.writeError(w, r, badRequest("path is required"))
		return
	}

	opts := h.readOpts
	if req.Encoding != "" {
		opts.Encoding = req.Encoding
	}
	ds, err := pipeline.ReadTable(req.Path, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.state.PublishRaw(req.Path, ds)
	h.log.Info("data loaded", "path", req.Path, "rows", ds.Len(), "columns", len(ds.Columns))

	writeJSON(w, http.StatusOK, model.MessageResponse{
		Message:    "Data loaded successfully",
		StatusCode: http.StatusOK,
		Rows:       ds.Len(),
	})
}

// ProcessData runs the processing stages over the loaded data
// @Summary Process data
// @Description Normalize, sanitize and derive total_amount for the loaded data
// @Tags data
// @Produce json
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse "Processing failed"
// @Failure 409 {object} model.ErrorResponse "No data loaded"
// @Router /process-data/ [post]
func (h *Handler) ProcessData(w http.ResponseWriter, r *http.Request) {
	raw, source, err := h.requireRaw()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ds, summary, err := h.processor.Process(r.Context(), source, raw)
	if errors.Is(err, pipeline.ErrEmptyInput) {
		h.writeError(w, r, badRequest("No data records found after processing"))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.state.PublishProcessed(summary.RunID, ds)

	writeJSON(w, http.StatusOK, model.MessageResponse{
		Message:    "Data preprocessed successfully",
		StatusCode: http.StatusOK,
		RunID:      summary.RunID,
		Rows:       ds.Len(),
	})
}

// DailyRevenue returns revenue per day, optionally for one dimension value
// @Summary Daily revenue
// @Description Revenue per day excluding returned orders. At most one filter may be given.
// @Tags insights
// @Produce json
// @Param ship_state query string false "Ship state"
// @Param category query string false "Category"
// @Param sku query string false "SKU"
// @Success 200 {array} model.DailyRevenueResponse
// @Failure 400 {object} model.ErrorResponse "Invalid filter"
// @Failure 409 {object} model.ErrorResponse "No processed data"
// @Router /insights/daily-revenue [get]
func (h *Handler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	ds, err := h.requireProcessed()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dim, value, err := revenueFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if dim != pipeline.DimNone {
		if err := validateColumnValue(ds, string(dim), value); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	report, err := pipeline.RevenuePerDay(ds, dim)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]model.DailyRevenueResponse, 0, report.Len())
	for _, rec := range report.Records {
		if dim != pipeline.DimNone {
			if s, _ := rec.String(string(dim)); s != value {
				continue
			}
		}
		row := model.DailyRevenueResponse{}
		row.Date, _ = rec[model.ColDate].(time.Time)
		row.RevenuePerDay, _ = rec.String(model.ColRevenuePerDay)
		switch dim {
		case pipeline.DimShipState:
			row.ShipState = value
		case pipeline.DimCategory:
			row.Category = value
		case pipeline.DimSKU:
			row.SKU = value
		}
		resp = append(resp, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// revenueFilter reads the single optional dimension filter. Values are
// lowercased to match the normalized text columns.
func revenueFilter(r *http.Request) (pipeline.Dimension, string, error) {
	dim, value := pipeline.DimNone, ""
	for _, d := range []pipeline.Dimension{pipeline.DimShipState, pipeline.DimCategory, pipeline.DimSKU} {
		v := strings.TrimSpace(r.URL.Query().Get(string(d)))
		if v == "" {
			continue
		}
		if dim != pipeline.DimNone {
			return pipeline.DimNone, "", badRequest("Only one of ship_state, category or sku may be given.")
		}
		dim, value = d, strings.ToLower(v)
	}
	return dim, value, nil
}

// TopSKUs returns the best selling SKUs of a month
// @Summary Top SKUs
// @Description SKUs ranked by monthly revenue, then by order count
// @Tags insights
// @Produce json
// @Param month query string true "Month name, e.g. may"
// @Param top_n query int false "Number of SKUs (1-100)" default(10)
// @Success 200 {array} model.TopSKUResponse
// @Failure 400 {object} model.ErrorResponse "Invalid month or top_n"
// @Failure 409 {object} model.ErrorResponse "No processed data"
// @Router /insights/top-skus [get]
func (h *Handler) TopSKUs(w http.ResponseWriter, r *http.Request) {
	ds, err := h.requireProcessed()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	month := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("month")))
	if month == "" {
		h.writeError(w, r, badRequest("month is required"))
		return
	}
	topN, err := parseTopN(r.URL.Query().Get("top_n"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validateColumnValue(ds, model.ColMonth, month); err != nil {
		h.writeError(w, r, err)
		return
	}

	inMonth := ds.Filter(func(rec model.Record) bool {
		s, _ := rec.String(model.ColMonth)
		return s == month
	})
	report, err := pipeline.TopSKUs(inMonth, topN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]model.TopSKUResponse, 0, report.Len())
	for _, rec := range report.Records {
		row := model.TopSKUResponse{Month: month}
		row.SKU, _ = rec.String(model.ColSKU)
		row.RevenuePerMonth, _ = rec.String(model.ColRevenuePerMonth)
		row.OrderCount, _ = rec[model.ColOrderCount].(int64)
		resp = append(resp, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseTopN(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return defaultTopN, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > maxTopN {
		return 0, badRequest("top_n must be an integer between 1 and %d", maxTopN)
	}
	return n, nil
}

// ASPOrderCount returns average selling price and order count
// @Summary Average selling price and order count
// @Description Grouped by sku, by category, or by both when filter_by is omitted
// @Tags insights
// @Produce json
// @Param filter_by query string false "sku or category" Enums(sku, category)
// @Success 200 {array} model.ASPOrderCountResponse
// @Failure 400 {object} model.ErrorResponse "Invalid filter_by"
// @Failure 409 {object} model.ErrorResponse "No processed data"
// @Router /insights/asp-order-count [get]
func (h *Handler) ASPOrderCount(w http.ResponseWriter, r *http.Request) {
	ds, err := h.requireProcessed()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var keys []string
	switch fb := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("filter_by"))); fb {
	case "":
		keys = []string{model.ColSKU, model.ColCategory}
	case model.ColSKU, model.ColCategory:
		keys = []string{fb}
	default:
		h.writeError(w, r, badRequest("filter_by must be sku or category"))
		return
	}

	report, err := pipeline.ASPAndCount(ds, keys...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]model.ASPOrderCountResponse, 0, report.Len())
	for _, rec := range report.Records {
		row := model.ASPOrderCountResponse{}
		row.SKU, _ = rec.String(model.ColSKU)
		row.Category, _ = rec.String(model.ColCategory)
		row.AverageSellingPrice, _ = rec.String(model.ColAverageSellingPrice)
		row.OrderCount, _ = rec[model.ColOrderCount].(int64)
		resp = append(resp, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns the most recent processing runs
// @Summary List runs
// @Tags runs
// @Produce json
// @Success 200 {array} model.RunSummary
// @Failure 500 {object} model.ErrorResponse
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context(), runsLimit)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("failed to list runs: %w", err))
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one processing run
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunSummary
// @Failure 404 {object} model.ErrorResponse "Run not found"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
