// Package worker recomputes the dashboard summary in the background.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eoranica/internal/amqp"
	"eoranica/internal/core"
	"eoranica/internal/log"
	"eoranica/internal/ports"
)

// SummaryComputer is satisfied by *services.DashboardService.
type SummaryComputer interface {
	Compute(ctx context.Context) (core.DashboardSummary, error)
}

// ReportWorker turns change events into stored dashboard snapshots and,
// when an exporter is configured, a spreadsheet copy of the breakdown.
type ReportWorker struct {
	computer  SummaryComputer
	snapshots ports.SnapshotStore
	exporter  ports.SummaryExporter
	logger    *log.Logger
	now       func() time.Time

	// mu serializes recomputations triggered by events and by the ticker.
	mu sync.Mutex
}

// NewReportWorker accepts a nil exporter.
func NewReportWorker(computer SummaryComputer, snapshots ports.SnapshotStore, exporter ports.SummaryExporter) *ReportWorker {
	return &ReportWorker{
		computer:  computer,
		snapshots: snapshots,
		exporter:  exporter,
		logger:    log.FromSlog(nil, log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleChange is the AMQP handler. An error makes the broker redeliver.
func (w *ReportWorker) HandleChange(ctx context.Context, ev *amqp.ChangeEvent) error {
	w.logger.InfoContext(ctx, "Processing change event",
		log.FieldMessageID, ev.MessageID,
		log.FieldEntity, ev.Entity,
		log.FieldEntityID, ev.ID,
		log.FieldOperation, ev.Op)

	_, err := w.Recompute(ctx)
	return err
}

// Recompute computes and stores a fresh summary. Export failures are logged
// only: the snapshot is already saved and the next run exports again.
func (w *ReportWorker) Recompute(ctx context.Context) (core.DashboardSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sum, err := w.computer.Compute(ctx)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("compute summary: %w", err)
	}

	computedAt := w.now()
	if err := w.snapshots.SaveSnapshot(ctx, sum, computedAt); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("save snapshot: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpSummarize).
		WithTotals(sum.TotalIncome.Cents, sum.TotalExpense.Cents, len(sum.PerPlot))
	w.logger.InfoContext(ctx, "Dashboard snapshot saved", fields.ToSlice()...)

	if w.exporter != nil {
		if err := w.exporter.ExportSummary(ctx, sum); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export summary", log.FieldError, err)
		} else {
			w.logger.InfoContext(ctx, "Summary exported", log.FieldPlotCount, len(sum.PerPlot))
		}
	}
	return sum, nil
}

// Run recomputes once at startup and then every interval until ctx ends.
// This covers events lost while the worker was down.
func (w *ReportWorker) Run(ctx context.Context, interval time.Duration) error {
	if _, err := w.Recompute(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup recompute failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Recompute(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic recompute failed", log.FieldError, err)
			}
		}
	}
}
