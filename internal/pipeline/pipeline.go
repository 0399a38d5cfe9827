package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"retail-insights/internal/model"
	"retail-insights/pkg/utils"
)

// RunRecorder persists run bookkeeping. The sqlite store implements it.
type RunRecorder interface {
	StartRun(ctx context.Context, run model.RunSummary) error
	FinishRun(ctx context.Context, run model.RunSummary) error
}

type noopRecorder struct{}

func (noopRecorder) StartRun(context.Context, model.RunSummary) error  { return nil }
func (noopRecorder) FinishRun(context.Context, model.RunSummary) error { return nil }

// Runner chains the processing stages and tracks every run.
type Runner struct {
	schema   model.SchemaConfig
	log      *slog.Logger
	clock    clockwork.Clock
	recorder RunRecorder
	newID    func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for run timestamps.
func WithClock(c clockwork.Clock) Option { return func(r *Runner) { r.clock = c } }

// WithRecorder stores runs through rec.
func WithRecorder(rec RunRecorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(f func() string) Option { return func(r *Runner) { r.newID = f } }

// NewRunner creates a runner applying schema during normalization.
func NewRunner(schema model.SchemaConfig, log *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		schema:   schema,
		log:      log,
		clock:    clockwork.NewRealClock(),
		recorder: noopRecorder{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process runs normalize, sanitize and derive over raw and checks the first
// processed row. Nothing is returned but the error when any stage fails.
func (r *Runner) Process(ctx context.Context, source string, raw model.Dataset) (model.Dataset, model.RunSummary, error) {
	tracker := r.begin(ctx, source)
	ds, err := r.process(tracker, raw)
	if err != nil {
		return model.Dataset{}, r.fail(ctx, tracker, err), err
	}
	return ds, r.complete(ctx, tracker, ds.Len()), nil
}

func (r *Runner) process(tracker *Tracker, raw model.Dataset) (model.Dataset, error) {
	ds, err := tracker.Stage(stageNormalize, raw.Len(), func() (model.Dataset, error) {
		return Normalize(raw, r.schema)
	})
	if err != nil {
		return model.Dataset{}, err
	}
	if ds, err = tracker.Stage(stageSanitize, ds.Len(), func() (model.Dataset, error) {
		return Sanitize(ds)
	}); err != nil {
		return model.Dataset{}, err
	}
	if ds, err = tracker.Stage(stageDerive, ds.Len(), func() (model.Dataset, error) {
		return DeriveTotalAmount(ds)
	}); err != nil {
		return model.Dataset{}, err
	}
	return tracker.Stage(stageSchema, ds.Len(), func() (model.Dataset, error) {
		if err := ValidateSchema(ds); err != nil {
			return model.Dataset{}, err
		}
		return ds, nil
	})
}

func (r *Runner) begin(ctx context.Context, source string) *Tracker {
	tracker := NewTracker(r.newID(), source, r.clock, r.log)
	if err := r.recorder.StartRun(ctx, tracker.Summary()); err != nil {
		r.log.Warn("failed to record run start", "run_id", tracker.Summary().RunID, "error", err)
	}
	return tracker
}

func (r *Runner) complete(ctx context.Context, tracker *Tracker, rows int) model.RunSummary {
	summary := tracker.Complete(rows)
	r.record(ctx, summary)
	return summary
}

func (r *Runner) fail(ctx context.Context, tracker *Tracker, err error) model.RunSummary {
	summary := tracker.Fail(err)
	r.record(ctx, summary)
	return summary
}

func (r *Runner) record(ctx context.Context, summary model.RunSummary) {
	if err := r.recorder.FinishRun(ctx, summary); err != nil {
		r.log.Warn("failed to record run", "run_id", summary.RunID, "error", err)
	}
}

// Report names produced by a batch run.
const (
	ReportProcessed    = "processed_data"
	ReportDailyRevenue = "revenue_per_day"
	ReportTopSKUs      = "top_skus"
	ReportASP          = "asp_order_count"
)

// BatchOptions tunes the reports written by RunBatch.
type BatchOptions struct {
	TopN      int
	Dimension Dimension
	JSON      bool // also write a JSON copy of every report
}

// BatchResult is the outcome of RunBatch.
type BatchResult struct {
	Summary model.RunSummary   `json:"summary"`
	Files   []utils.OutputFile `json:"files"`
}

// RunBatch reads every source, processes the combined table and writes the
// processed table plus the insight reports into the run's output directory.
func (r *Runner) RunBatch(ctx context.Context, sources []model.Source, om *utils.OutputManager, opts BatchOptions) (BatchResult, error) {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	paths := make([]string, len(sources))
	for i, s := range sources {
		paths[i] = s.Path
	}

	tracker := r.begin(ctx, strings.Join(paths, ","))
	files, err := r.batch(ctx, tracker, sources, om, opts)
	if err != nil {
		return BatchResult{Summary: r.fail(ctx, tracker, err), Files: files}, err
	}

	rows := 0
	for _, st := range tracker.Summary().Stages {
		if st.Stage == stageSchema {
			rows = st.RecordsOut
		}
	}
	return BatchResult{Summary: r.complete(ctx, tracker, rows), Files: files}, nil
}

func (r *Runner) batch(ctx context.Context, tracker *Tracker, sources []model.Source, om *utils.OutputManager, opts BatchOptions) ([]utils.OutputFile, error) {
	raw, err := tracker.Stage(stageRead, 0, func() (model.Dataset, error) {
		return ReadTables(ctx, sources)
	})
	if err != nil {
		return nil, err
	}
	processed, err := r.process(tracker, raw)
	if err != nil {
		return nil, err
	}

	reports := []struct {
		name string
		run  func() (model.Dataset, error)
	}{
		{ReportProcessed, func() (model.Dataset, error) { return processed, nil }},
		{ReportDailyRevenue, func() (model.Dataset, error) { return RevenuePerDay(processed, opts.Dimension) }},
		{ReportTopSKUs, func() (model.Dataset, error) { return TopSKUs(processed, opts.TopN) }},
		{ReportASP, func() (model.Dataset, error) { return ASPAndCount(processed, model.ColSKU, model.ColCategory) }},
	}

	runID := tracker.Summary().RunID
	var files []utils.OutputFile
	for _, rep := range reports {
		ds, err := tracker.Stage(stageAggregate+":"+rep.name, processed.Len(), rep.run)
		if err != nil {
			return files, err
		}
		written, err := r.writeReport(om, runID, rep.name, ds, opts.JSON)
		files = append(files, written...)
		if err != nil {
			return files, err
		}
	}
	return files, nil
}

func (r *Runner) writeReport(om *utils.OutputManager, runID, name string, ds model.Dataset, withJSON bool) ([]utils.OutputFile, error) {
	var files []utils.OutputFile

	csvPath, err := om.FilePath(runID, name+".csv")
	if err != nil {
		return nil, err
	}
	if err := WriteTable(csvPath, ds); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if f, err := om.Describe(csvPath); err == nil {
		files = append(files, f)
	}

	if withJSON {
		jsonPath, err := om.FilePath(runID, name+".json")
		if err != nil {
			return files, err
		}
		info := ExportInfo{RunID: runID, Report: name, ExportedAt: r.clock.Now().UTC()}
		if err := WriteJSON(jsonPath, ds, info); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", name, err)
		}
		if f, err := om.Describe(jsonPath); err == nil {
			files = append(files, f)
		}
	}

	r.log.Info("report written", "run_id", runID, "report", name, "rows", ds.Len(), "path", csvPath)
	return files, nil
}
