package pipeline

import (
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"retail-insights/internal/metrics"
	"retail-insights/internal/model"
)

// Tracker records timing and row counts for the stages of one run and
// reports them to the log and to prometheus.
type Tracker struct {
	clock clockwork.Clock
	log   *slog.Logger

	mu      sync.Mutex
	summary model.RunSummary
}

// NewTracker starts tracking a run.
func NewTracker(runID, source string, clock clockwork.Clock, log *slog.Logger) *Tracker {
	return &Tracker{
		clock: clock,
		log:   log.With("run_id", runID),
		summary: model.RunSummary{
			RunID:     runID,
			Source:    source,
			Status:    model.RunRunning,
			StartTime: clock.Now().UTC(),
			Stages:    make([]model.StageMetrics, 0, 6),
		},
	}
}

// Stage runs fn as the named stage. rowsIn is the row count fed to the stage.
func (t *Tracker) Stage(name string, rowsIn int, fn func() (model.Dataset, error)) (model.Dataset, error) {
	start := t.clock.Now()
	t.log.Debug("stage started", "stage", name, "rows_in", rowsIn)

	ds, err := fn()

	end := t.clock.Now()
	sm := model.StageMetrics{
		Stage:      name,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		Duration:   end.Sub(start),
		RecordsIn:  rowsIn,
		RecordsOut: ds.Len(),
	}

	if err != nil {
		sm.Error = err.Error()
		metrics.RecordStageError(name, KindName(err))
		t.log.Error("stage failed", "stage", name, "kind", KindName(err), "error", err)
	} else {
		metrics.RecordStage(name, sm.Duration, rowsIn, sm.RecordsOut)
		t.log.Info("stage completed", "stage", name, "rows_in", rowsIn, "rows_out", sm.RecordsOut, "duration", sm.Duration)
	}

	t.mu.Lock()
	t.summary.Stages = append(t.summary.Stages, sm)
	if name == stageNormalize {
		t.summary.RecordsIn = rowsIn
	}
	t.mu.Unlock()
	return ds, err
}

// Complete marks the run successful with rowsOut output rows.
func (t *Tracker) Complete(rowsOut int) model.RunSummary {
	return t.finish(model.RunCompleted, rowsOut, nil)
}

// Fail marks the run failed.
func (t *Tracker) Fail(err error) model.RunSummary {
	return t.finish(model.RunFailed, 0, err)
}

func (t *Tracker) finish(status string, rowsOut int, err error) model.RunSummary {
	t.mu.Lock()
	t.summary.Status = status
	t.summary.EndTime = t.clock.Now().UTC()
	t.summary.RecordsOut = rowsOut
	if err != nil {
		t.summary.Error = err.Error()
	}
	summary := t.snapshot()
	t.mu.Unlock()

	metrics.RunsTotal.WithLabelValues(status).Inc()
	t.log.Info("run finished", "status", status, "rows_in", summary.RecordsIn, "rows_out", rowsOut,
		"duration", summary.EndTime.Sub(summary.StartTime))
	return summary
}

// Summary returns a copy of the run so far.
func (t *Tracker) Summary() model.RunSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() model.RunSummary {
	s := t.summary
	s.Stages = append([]model.StageMetrics(nil), t.summary.Stages...)
	return s
}
