// Package ports declares the interfaces between the HTTP layer, the services
// and the storage backends (SQLite or in-memory).
package ports

import (
	"context"
	"time"

	"eoranica/internal/core"
)

type (
	PersonStore interface {
		CreatePerson(ctx context.Context, p core.Person) (int64, error)
		GetPerson(ctx context.Context, id int64) (core.Person, error)
		ListPeople(ctx context.Context) ([]core.Person, error)
		UpdatePerson(ctx context.Context, p core.Person) error
		DeletePerson(ctx context.Context, id int64) error
		CountPeople(ctx context.Context) (int, error)
	}

	PlantStore interface {
		CreatePlant(ctx context.Context, p core.Plant) (int64, error)
		GetPlant(ctx context.Context, id int64) (core.Plant, error)
		ListPlants(ctx context.Context) ([]core.Plant, error)
		UpdatePlant(ctx context.Context, p core.Plant) error
		DeletePlant(ctx context.Context, id int64) error

		CreatePassport(ctx context.Context, pp core.PlantPassport) (int64, error)
		GetPassport(ctx context.Context, id int64) (core.PlantPassport, error)
		ListPassports(ctx context.Context) ([]core.PlantPassport, error)
		DeletePassport(ctx context.Context, id int64) error
	}

	// PlaceStore holds countries and their cities. Deleting a country
	// deletes its cities; country names are unique.
	PlaceStore interface {
		CreateCountry(ctx context.Context, c core.Country) (int64, error)
		GetCountry(ctx context.Context, id int64) (core.Country, error)
		ListCountries(ctx context.Context) ([]core.Country, error)
		UpdateCountry(ctx context.Context, c core.Country) error
		DeleteCountry(ctx context.Context, id int64) error

		CreateCity(ctx context.Context, c core.City) (int64, error)
		GetCity(ctx context.Context, id int64) (core.City, error)
		ListCities(ctx context.Context) ([]core.City, error)
		UpdateCity(ctx context.Context, c core.City) error
		DeleteCity(ctx context.Context, id int64) error
	}

	// OrderStore lists orders with customer, plant and status names joined in.
	OrderStore interface {
		ListOrderStatuses(ctx context.Context) ([]core.OrderStatus, error)
		CreateOrder(ctx context.Context, o core.Order) (int64, error)
		GetOrder(ctx context.Context, id int64) (core.Order, error)
		ListOrders(ctx context.Context) ([]core.Order, error)
		UpdateOrder(ctx context.Context, o core.Order) error
		DeleteOrder(ctx context.Context, id int64) error
	}

	ChoreStore interface {
		CreateChoreDefinition(ctx context.Context, cd core.ChoreDefinition) (int64, error)
		ListChoreDefinitions(ctx context.Context) ([]core.ChoreDefinition, error)
		CreateChore(ctx context.Context, c core.Chore) (int64, error)
		GetChore(ctx context.Context, id int64) (core.Chore, error)
		ListChores(ctx context.Context) ([]core.Chore, error)
		UpdateChore(ctx context.Context, c core.Chore) error
		DeleteChore(ctx context.Context, id int64) error
	}

	PlotStore interface {
		CreatePlot(ctx context.Context, p core.Plot) (int64, error)
		GetPlot(ctx context.Context, id int64) (core.Plot, error)
		ListPlots(ctx context.Context) ([]core.Plot, error)
		UpdatePlot(ctx context.Context, p core.Plot) error
		DeletePlot(ctx context.Context, id int64) error
	}

	LedgerStore interface {
		CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (int64, error)
		GetLedgerEntry(ctx context.Context, id int64) (core.LedgerEntry, error)
		ListLedgerEntries(ctx context.Context) ([]core.LedgerEntry, error)
		UpdateLedgerEntry(ctx context.Context, e core.LedgerEntry) error
		DeleteLedgerEntry(ctx context.Context, id int64) error
	}

	// SnapshotStore persists dashboard summaries computed by the report worker.
	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, s core.DashboardSummary, computedAt time.Time) error
		// LatestSnapshot returns core.ErrNotFound when nothing was saved yet.
		LatestSnapshot(ctx context.Context) (core.DashboardSummary, time.Time, error)
	}

	// Repository is everything a backend provides.
	Repository interface {
		PersonStore
		PlantStore
		PlaceStore
		OrderStore
		ChoreStore
		PlotStore
		LedgerStore
		SnapshotStore
	}

	// SummaryReader is implemented by backends that aggregate in the
	// database. Other backends are summarized with core.Summarize.
	SummaryReader interface {
		ReadSummary(ctx context.Context) (core.DashboardSummary, error)
	}

	// SummaryExporter publishes a summary to an external destination.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, s core.DashboardSummary) error
	}
)
