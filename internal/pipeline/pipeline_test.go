package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-insights/internal/logger"
	"retail-insights/internal/model"
	"retail-insights/pkg/utils"
)

const salesFixture = "testdata/sales.csv"

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

type memRecorder struct {
	started  []model.RunSummary
	finished []model.RunSummary
}

func (m *memRecorder) StartRun(_ context.Context, run model.RunSummary) error {
	m.started = append(m.started, run)
	return nil
}

func (m *memRecorder) FinishRun(_ context.Context, run model.RunSummary) error {
	m.finished = append(m.finished, run)
	return nil
}

func newTestRunner(rec RunRecorder) (*Runner, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	return NewRunner(salesSchema(), logger.NewTest(),
		WithClock(clock),
		WithRecorder(rec),
		WithIDGenerator(func() string { return "run-1" }),
	), clock
}

func TestRunnerProcess(t *testing.T) {
	raw, err := ReadTable(salesFixture, ReadOptions{Encoding: "utf-8"})
	require.NoError(t, err)
	require.Len(t, raw.Records, 8)

	rec := &memRecorder{}
	runner, _ := newTestRunner(rec)
	ds, summary, err := runner.Process(context.Background(), salesFixture, raw)
	require.NoError(t, err)

	// duplicate, cancelled and unshipped rows are gone
	require.Len(t, ds.Records, 5)
	assert.Equal(t, "171-9198151-1101146", ds.Records[0]["order_id"])
	assert.Equal(t, "delivered", ds.Records[0]["status"])
	assert.Equal(t, "amazon.in", ds.Records[0]["sales_channel"])
	assert.Equal(t, 753.33, ds.Records[2]["amount"])
	assert.Equal(t, "returned", ds.Records[4]["status"])
	for _, r := range ds.Records {
		assert.Equal(t, r["amount"].(float64)*float64(r["qty"].(int64)), r["total_amount"])
	}

	assert.Equal(t, model.RunCompleted, summary.Status)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 8, summary.RecordsIn)
	assert.Equal(t, 5, summary.RecordsOut)
	require.Len(t, summary.Stages, 4)
	assert.Equal(t, []string{"normalize", "sanitize", "derive", "schema"}, stageNames(summary))

	require.Len(t, rec.started, 1)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, model.RunRunning, rec.started[0].Status)
	assert.Equal(t, model.RunCompleted, rec.finished[0].Status)

	// raw input is untouched
	assert.Equal(t, "Cancelled", raw.Records[0]["Status"])
}

func TestRunnerProcessFailure(t *testing.T) {
	raw := model.NewDataset("Date", "SKU")
	raw.Records = append(raw.Records, model.Record{"Date": "30/04/2022", "SKU": "a"})

	rec := &memRecorder{}
	runner, _ := newTestRunner(rec)
	ds, summary, err := runner.Process(context.Background(), "inline", raw)
	require.ErrorIs(t, err, ErrDateParse)
	assert.Empty(t, ds.Records)

	assert.Equal(t, model.RunFailed, summary.Status)
	assert.NotEmpty(t, summary.Error)
	require.Len(t, summary.Stages, 1)
	assert.NotEmpty(t, summary.Stages[0].Error)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, model.RunFailed, rec.finished[0].Status)
}

func TestTrackerTimings(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	tracker := NewTracker("run-x", "src", clock, logger.NewTest())

	_, err := tracker.Stage("normalize", 3, func() (model.Dataset, error) {
		clock.Advance(250 * time.Millisecond)
		ds := model.NewDataset("a")
		ds.Records = append(ds.Records, model.Record{"a": "1"})
		return ds, nil
	})
	require.NoError(t, err)

	summary := tracker.Complete(1)
	require.Len(t, summary.Stages, 1)
	assert.Equal(t, 250*time.Millisecond, summary.Stages[0].Duration)
	assert.Equal(t, 3, summary.Stages[0].RecordsIn)
	assert.Equal(t, 1, summary.Stages[0].RecordsOut)
	assert.Equal(t, 3, summary.RecordsIn)
	assert.Equal(t, 250*time.Millisecond, summary.EndTime.Sub(summary.StartTime))
}

func TestRunBatch(t *testing.T) {
	out := t.TempDir()
	runner, _ := newTestRunner(nil)

	res, err := runner.RunBatch(context.Background(),
		[]model.Source{{Path: salesFixture}},
		utils.NewOutputManager(out),
		BatchOptions{TopN: 2, JSON: true},
	)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, res.Summary.Status)
	assert.Equal(t, 5, res.Summary.RecordsOut)
	assert.Len(t, res.Files, 8)

	top, err := ReadTable(filepath.Join(out, "run-1", "top_skus.csv"), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, top.Records, 2)
	assert.Equal(t, "jne3671-tu-xxxl", top.Records[0]["sku"])
	assert.Equal(t, "may", top.Records[0]["month"])
	assert.Equal(t, "2,260", top.Records[0]["revenue_per_month"])
	assert.Equal(t, "2", top.Records[0]["order_count"])
	assert.Equal(t, "set389-kr-np-s", top.Records[1]["sku"])

	daily, err := ReadTable(filepath.Join(out, "run-1", "revenue_per_day.csv"), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, daily.Records, 2)
	assert.Equal(t, "2022-04-30", daily.Records[0]["date"])
	assert.Equal(t, "735", daily.Records[0]["revenue_per_day"])
	assert.Equal(t, "2,260", daily.Records[1]["revenue_per_day"])

	asp, err := ReadTable(filepath.Join(out, "run-1", "asp_order_count.csv"), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, asp.Records, 4)
	assert.Equal(t, "jne3671-tu-xxxl", asp.Records[1]["sku"])
	assert.Equal(t, "1,130", asp.Records[1]["average_selling_price"])

	_, err = os.Stat(filepath.Join(out, "run-1", "processed_data.json"))
	assert.NoError(t, err)
}

func TestRunBatchMissingInput(t *testing.T) {
	runner, _ := newTestRunner(nil)
	res, err := runner.RunBatch(context.Background(),
		[]model.Source{{Path: "testdata/nope.csv"}},
		utils.NewOutputManager(t.TempDir()),
		BatchOptions{},
	)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, model.RunFailed, res.Summary.Status)
	assert.Empty(t, res.Files)
}

func stageNames(s model.RunSummary) []string {
	var names []string
	for _, st := range s.Stages {
		names = append(names, st.Stage)
	}
	return names
}
