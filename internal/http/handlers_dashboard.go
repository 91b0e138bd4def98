package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"eoranica/internal/core"
	"eoranica/internal/log"
)

const dashboardTimeout = 7 * time.Second

type dashboardPage struct {
	Summary core.DashboardSummary
	Balance core.Money
	Orders  []core.Order
	Chores  []core.Chore
	// LastReport is zero until the report worker has saved a summary.
	LastReport time.Time
}

type latestSummary struct {
	ComputedAt time.Time             `json:"computed_at"`
	Summary    core.DashboardSummary `json:"summary"`
}

// handleDashboard renders counts, totals, the per-plot table, orders and chores.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	var page dashboardPage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		page.Summary, err = s.dashboard.Summary(gctx)
		return err
	})
	g.Go(func() (err error) {
		page.Orders, err = s.farm.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		page.Chores, err = s.farm.ListChores(gctx)
		return err
	})
	g.Go(func() error {
		_, at, err := s.dashboard.Latest(gctx)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		page.LastReport = at
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	page.Balance = page.Summary.Balance()
	s.appMetrics.summaries.Add(1)

	s.render(w, r, http.StatusOK, "dashboard.html", page)
}

// handleSummary returns the current dashboard summary as JSON.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	sum, err := s.dashboard.Summary(ctx)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	s.appMetrics.summaries.Add(1)
	NewResponse().JSON(sum).Write(w)
}

// handleLatestSummary returns the summary the report worker saved last,
// with the time it was computed. 404 until the worker has run once.
func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	sum, at, err := s.dashboard.Latest(r.Context())
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	NewResponse().JSON(latestSummary{ComputedAt: at, Summary: sum}).Write(w)
}

// handleSummarizeSnapshot runs the aggregator over a posted snapshot. A
// malformed amount in the snapshot answers 422 naming the entry.
func (s *Server) handleSummarizeSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap core.Snapshot
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&snap); err != nil {
		if status := statusFor(err); status == http.StatusRequestEntityTooLarge {
			JSONError(status, "snapshot too large").Write(w)
			return
		}
		JSONError(http.StatusBadRequest, "malformed snapshot: "+err.Error()).Write(w)
		return
	}

	sum, err := core.Summarize(snap)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	s.appMetrics.summaries.Add(1)
	NewResponse().JSON(sum).Write(w)
}
