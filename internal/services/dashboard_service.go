package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"eoranica/internal/cache"
	"eoranica/internal/core"
	"eoranica/internal/log"
	"eoranica/internal/ports"
)

const summaryCacheKey = "dashboard"

// DashboardService computes and caches the dashboard summary.
type DashboardService struct {
	repo   ports.Repository
	reader ports.SummaryReader
	cache  *cache.LRUCache[core.DashboardSummary]
	logger *log.Logger
	now    func() time.Time
	// gen is bumped by Invalidate so a computation that raced with a
	// write is not cached.
	gen atomic.Uint64
}

// NewDashboardService aggregates in the backend when repo implements
// ports.SummaryReader (SQLite), and with LoadSnapshot plus core.Summarize
// otherwise (the memory store).
func NewDashboardService(repo ports.Repository, ttl time.Duration) *DashboardService {
	reader, _ := repo.(ports.SummaryReader)
	return &DashboardService{
		repo:   repo,
		reader: reader,
		cache:  cache.NewLRUCache[core.DashboardSummary](1, ttl),
		logger: log.FromSlog(nil, log.ComponentDashboard),
		now:    time.Now,
	}
}

// Cache exposes the summary cache so it can be registered with a cache.Manager.
func (s *DashboardService) Cache() *cache.LRUCache[core.DashboardSummary] {
	return s.cache
}

// Invalidate drops the cached summary.
func (s *DashboardService) Invalidate() {
	s.gen.Add(1)
	s.cache.Purge()
}

// Summary returns the cached summary, computing it on a miss.
func (s *DashboardService) Summary(ctx context.Context) (core.DashboardSummary, error) {
	if sum, ok := s.cache.Get(summaryCacheKey); ok {
		return clone(sum), nil
	}
	gen := s.gen.Load()
	sum, err := s.Compute(ctx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	if s.gen.Load() == gen {
		s.cache.Set(summaryCacheKey, sum)
	}
	return clone(sum), nil
}

// Compute builds a fresh summary, bypassing the cache.
func (s *DashboardService) Compute(ctx context.Context) (core.DashboardSummary, error) {
	start := s.now()

	var (
		sum core.DashboardSummary
		err error
	)
	if s.reader != nil {
		sum, err = s.reader.ReadSummary(ctx)
	} else {
		var snap core.Snapshot
		snap, err = s.LoadSnapshot(ctx)
		if err == nil {
			sum, err = core.Summarize(snap)
		}
	}
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("compute summary: %w", err)
	}

	s.logger.DebugContext(ctx, "Dashboard summary computed",
		append(log.NewFields().
			WithOperation(log.OpSummarize).
			WithTotals(sum.TotalIncome.Cents, sum.TotalExpense.Cents, len(sum.PerPlot)).
			ToSlice(), log.FieldDuration, s.now().Sub(start).Milliseconds())...)
	return sum, nil
}

// Latest returns the last summary the report worker saved and when it was
// computed. core.ErrNotFound means the worker has not run yet.
func (s *DashboardService) Latest(ctx context.Context) (core.DashboardSummary, time.Time, error) {
	sum, at, err := s.repo.LatestSnapshot(ctx)
	if err != nil {
		return core.DashboardSummary{}, time.Time{}, err
	}
	return sum, at, nil
}

// LoadSnapshot reads the collections the aggregator needs concurrently. The
// reads are not one transaction; a write racing with them bumps gen, so
// Summary never caches the mixed result.
func (s *DashboardService) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Orders, err = s.repo.ListOrders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Chores, err = s.repo.ListChores(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Plots, err = s.repo.ListPlots(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.LedgerEntries, err = s.repo.ListLedgerEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.PersonCount, err = s.repo.CountPeople(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func clone(s core.DashboardSummary) core.DashboardSummary {
	s.PerPlot = append([]core.PlotSummary{}, s.PerPlot...)
	return s
}
