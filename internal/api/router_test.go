package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-insights/internal/api/handler"
	"retail-insights/internal/logger"
	"retail-insights/internal/model"
	"retail-insights/internal/pipeline"
	"retail-insights/internal/store"
	"retail-insights/pkg/router"
)

const salesFixture = "../pipeline/testdata/sales.csv"

func salesSchema() model.SchemaConfig {
	return model.SchemaConfig{
		DropColumns: []string{
			"index", "ship-service-level", "ASIN", "Courier Status", "currency",
			"ship-country", "promotion-ids", "fulfilled-by", "Unnamed: 22",
		},
		DtypeMap: map[string]string{
			"order_id":         "string",
			"qty":              "int",
			"amount":           "float",
			"ship_postal_code": "int",
			"b2b":              "bool",
		},
		StatusMapping: map[string]string{
			"Shipped - Delivered to Buyer": "delivered",
			"Shipped - Returned to Seller": "returned",
		},
	}
}

func newTestServer(t *testing.T) *router.Router {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	runner := pipeline.NewRunner(salesSchema(), logger.NewTest(),
		pipeline.WithClock(clock),
		pipeline.WithRecorder(st),
		pipeline.WithIDGenerator(func() string { return "run-1" }),
	)
	h := handler.New(logger.NewTest(), runner, handler.WithRunStore(st))
	r := router.New(logger.NewTest())
	RegisterRoutes(r, h)
	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func loadAndProcess(t *testing.T, r http.Handler) {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/load-data/", `{"path":"`+salesFixture+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodPost, "/process-data/", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLoadAndProcess(t *testing.T) {
	r := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/load-data/", `{"path":"`+salesFixture+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded model.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.Equal(t, "Data loaded successfully", loaded.Message)
	assert.Equal(t, 200, loaded.StatusCode)
	assert.Equal(t, 8, loaded.Rows)

	rec = do(t, r, http.MethodPost, "/process-data/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var processed model.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &processed))
	assert.Equal(t, "Data preprocessed successfully", processed.Message)
	assert.Equal(t, "run-1", processed.RunID)
	assert.Equal(t, 5, processed.Rows)

	rec = do(t, r, http.MethodGet, "/runs/run-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 5, run.RecordsOut)

	rec = do(t, r, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)

	rec = do(t, r, http.MethodGet, "/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadDataErrors(t *testing.T) {
	r := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/load-data/", `{"path":"missing.csv"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/load-data/", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/load-data/", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessDataNothingLeft(t *testing.T) {
	raw, err := os.ReadFile(salesFixture)
	require.NoError(t, err)
	lines := strings.SplitN(string(raw), "\n", 3)
	path := filepath.Join(t.TempDir(), "cancelled.csv")
	require.NoError(t, os.WriteFile(path, []byte(lines[0]+"\n"+lines[1]+"\n"), 0o644))

	r := newTestServer(t)
	rec := do(t, r, http.MethodPost, "/load-data/", `{"path":"`+path+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/process-data/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"No data records found after processing"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/insights/daily-revenue", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreconditions(t *testing.T) {
	r := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/process-data/", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"detail":"No data loaded. Please load data first."}`, rec.Body.String())

	for _, target := range []string{
		"/insights/daily-revenue",
		"/insights/top-skus?month=may",
		"/insights/asp-order-count",
	} {
		rec := do(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusConflict, rec.Code, target)
		assert.JSONEq(t, `{"detail":"No processed data available. Please process data first."}`, rec.Body.String(), target)
	}
}

func TestDailyRevenue(t *testing.T) {
	r := newTestServer(t)
	loadAndProcess(t, r)

	rec := do(t, r, http.MethodGet, "/insights/daily-revenue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.DailyRevenueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.Equal(time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "735", all[0].RevenuePerDay)
	assert.Equal(t, "2,260", all[1].RevenuePerDay)
	assert.NotContains(t, rec.Body.String(), "ship_state")

	rec = do(t, r, http.MethodGet, "/insights/daily-revenue?ship_state=Tamil%20Nadu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var byState []model.DailyRevenueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byState))
	require.Len(t, byState, 1)
	assert.Equal(t, "tamil nadu", byState[0].ShipState)
	assert.Equal(t, "2,260", byState[0].RevenuePerDay)

	rec = do(t, r, http.MethodGet, "/insights/daily-revenue?ship_state=goa", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid ship_state. Please check the available ship_states."}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/insights/daily-revenue?ship_state=karnataka&sku=jne3781-kr-xxxl", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopSKUsEndpoint(t *testing.T) {
	r := newTestServer(t)
	loadAndProcess(t, r)

	rec := do(t, r, http.MethodGet, "/insights/top-skus?month=May&top_n=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var top []model.TopSKUResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, model.TopSKUResponse{SKU: "jne3671-tu-xxxl", RevenuePerMonth: "2,260", OrderCount: 2, Month: "may"}, top[0])

	rec = do(t, r, http.MethodGet, "/insights/top-skus?month=april", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.Len(t, top, 2)
	assert.Equal(t, "jne3781-kr-xxxl", top[0].SKU)
	assert.Equal(t, "406", top[0].RevenuePerMonth)

	for _, target := range []string{
		"/insights/top-skus",
		"/insights/top-skus?month=june",
		"/insights/top-skus?month=may&top_n=0",
		"/insights/top-skus?month=may&top_n=101",
	} {
		rec := do(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestASPOrderCountEndpoint(t *testing.T) {
	r := newTestServer(t)
	loadAndProcess(t, r)

	rec := do(t, r, http.MethodGet, "/insights/asp-order-count?filter_by=category", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var byCategory []model.ASPOrderCountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byCategory))
	assert.Equal(t, []model.ASPOrderCountResponse{
		{Category: "kurta", AverageSellingPrice: "368", OrderCount: 2},
		{Category: "set", AverageSellingPrice: "574", OrderCount: 1},
		{Category: "top", AverageSellingPrice: "1,130", OrderCount: 2},
	}, byCategory)
	assert.NotContains(t, rec.Body.String(), `"sku"`)

	rec = do(t, r, http.MethodGet, "/insights/asp-order-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var both []model.ASPOrderCountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &both))
	require.Len(t, both, 4)
	assert.Equal(t, "jne3371-kr-xl", both[0].SKU)
	assert.Equal(t, "kurta", both[0].Category)

	rec = do(t, r, http.MethodGet, "/insights/asp-order-count?filter_by=month", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationalRoutes(t *testing.T) {
	r := newTestServer(t)

	rec := do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = do(t, r, http.MethodGet, "/swagger/doc.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/insights/top-skus")
}
