package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"eoranica/internal/core"
	"eoranica/internal/ports"

	_ "modernc.org/sqlite"
)

// keptSnapshots bounds the dashboard_snapshots table.
const keptSnapshots = 100

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.Repository    = (*SQLiteRepository)(nil)
	_ ports.SummaryReader = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Without the pragma SQLite parses REFERENCES clauses but never enforces them.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// notFound maps sql.ErrNoRows to a typed NotFoundError.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("get %s %d: %w", entity, id, err)
}

// constraint turns SQLite constraint failures into the ValidationErrors the
// memory store returns for the same writes. Other errors pass through.
func constraint(err error, entity string, id int64, deleting bool) error {
	msg := err.Error()
	var ve *core.ValidationError
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed") && deleting:
		ve = &core.ValidationError{Field: entity, Value: strconv.FormatInt(id, 10), Reason: "still in use"}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		ve = &core.ValidationError{Field: entity, Reason: "references a missing record"}
	case strings.Contains(msg, "UNIQUE constraint failed"):
		ve = &core.ValidationError{Field: "name", Reason: "already exists"}
	default:
		return err
	}
	return fmt.Errorf("%w: %v", ve, err)
}

// execAffecting runs a write and reports NotFoundError when no row matched.
func (r *SQLiteRepository) execAffecting(ctx context.Context, entity string, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		err = constraint(err, entity, id, strings.HasPrefix(query, "DELETE"))
		return fmt.Errorf("write %s %d: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func (r *SQLiteRepository) insert(ctx context.Context, entity, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", entity, constraint(err, entity, 0, false))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	slog.DebugContext(ctx, "Row inserted", "entity", entity, "id", id)
	return id, nil
}

// listRows runs query and scans every row with scan.
func listRows[T any](ctx context.Context, db *sql.DB, entity, query string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", entity, err)
	}
	return out, nil
}

// People

func scanPerson(s rowScanner) (core.Person, error) {
	var p core.Person
	err := s.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone)
	return p, err
}

func (r *SQLiteRepository) CreatePerson(ctx context.Context, p core.Person) (int64, error) {
	return r.insert(ctx, "person", createPerson, p.FirstName, p.LastName, p.Email, p.Phone)
}

func (r *SQLiteRepository) GetPerson(ctx context.Context, id int64) (core.Person, error) {
	p, err := scanPerson(r.db.QueryRowContext(ctx, getPerson, id))
	if err != nil {
		return core.Person{}, notFound(err, "person", id)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPeople(ctx context.Context) ([]core.Person, error) {
	return listRows(ctx, r.db, "people", listPeople, scanPerson)
}

func (r *SQLiteRepository) UpdatePerson(ctx context.Context, p core.Person) error {
	return r.execAffecting(ctx, "person", p.ID, updatePerson, p.FirstName, p.LastName, p.Email, p.Phone, p.ID)
}

func (r *SQLiteRepository) DeletePerson(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "person", id, deletePerson, id)
}

func (r *SQLiteRepository) CountPeople(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countPeople).Scan(&n); err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return n, nil
}

// Plants and passports

func scanPassport(s rowScanner) (core.PlantPassport, error) {
	var pp core.PlantPassport
	err := s.Scan(&pp.ID, &pp.CountryOfOrigin, &pp.DateOfIssue, &pp.IssuingAuthority, &pp.CertificateNumber, &pp.Description)
	return pp, err
}

func (r *SQLiteRepository) CreatePassport(ctx context.Context, pp core.PlantPassport) (int64, error) {
	return r.insert(ctx, "plant passport", createPassport,
		pp.CountryOfOrigin, pp.DateOfIssue.UTC(), pp.IssuingAuthority, pp.CertificateNumber, pp.Description)
}

func (r *SQLiteRepository) GetPassport(ctx context.Context, id int64) (core.PlantPassport, error) {
	pp, err := scanPassport(r.db.QueryRowContext(ctx, getPassport, id))
	if err != nil {
		return core.PlantPassport{}, notFound(err, "plant passport", id)
	}
	return pp, nil
}

func (r *SQLiteRepository) ListPassports(ctx context.Context) ([]core.PlantPassport, error) {
	return listRows(ctx, r.db, "plant passports", listPassports, scanPassport)
}

// DeletePassport removes the passport and clears it from any plant.
func (r *SQLiteRepository) DeletePassport(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, detachPassport, id); err != nil {
			return fmt.Errorf("detach passport %d: %w", id, err)
		}
		return deleteInTx(ctx, tx, "plant passport", id, deletePassport)
	})
}

func scanPlant(s rowScanner) (core.Plant, error) {
	var (
		p        core.Plant
		passport sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.LatinName, &p.Price.Cents, &passport); err != nil {
		return core.Plant{}, err
	}
	p.PassportID = idPtr(passport)
	return p, nil
}

func (r *SQLiteRepository) CreatePlant(ctx context.Context, p core.Plant) (int64, error) {
	return r.insert(ctx, "plant", createPlant, p.Name, p.LatinName, p.Price.Cents, nullID(p.PassportID))
}

func (r *SQLiteRepository) GetPlant(ctx context.Context, id int64) (core.Plant, error) {
	p, err := scanPlant(r.db.QueryRowContext(ctx, getPlant, id))
	if err != nil {
		return core.Plant{}, notFound(err, "plant", id)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPlants(ctx context.Context) ([]core.Plant, error) {
	return listRows(ctx, r.db, "plants", listPlants, scanPlant)
}

func (r *SQLiteRepository) UpdatePlant(ctx context.Context, p core.Plant) error {
	return r.execAffecting(ctx, "plant", p.ID, updatePlant, p.Name, p.LatinName, p.Price.Cents, nullID(p.PassportID), p.ID)
}

func (r *SQLiteRepository) DeletePlant(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "plant", id, deletePlant, id)
}

// Countries and cities

func scanCountry(s rowScanner) (core.Country, error) {
	var c core.Country
	err := s.Scan(&c.ID, &c.Name)
	return c, err
}

func (r *SQLiteRepository) CreateCountry(ctx context.Context, c core.Country) (int64, error) {
	return r.insert(ctx, "country", createCountry, c.Name)
}

func (r *SQLiteRepository) GetCountry(ctx context.Context, id int64) (core.Country, error) {
	c, err := scanCountry(r.db.QueryRowContext(ctx, getCountry, id))
	if err != nil {
		return core.Country{}, notFound(err, "country", id)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCountries(ctx context.Context) ([]core.Country, error) {
	return listRows(ctx, r.db, "countries", listCountries, scanCountry)
}

func (r *SQLiteRepository) UpdateCountry(ctx context.Context, c core.Country) error {
	return r.execAffecting(ctx, "country", c.ID, updateCountry, c.Name, c.ID)
}

// DeleteCountry removes the country; ON DELETE CASCADE removes its cities.
func (r *SQLiteRepository) DeleteCountry(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "country", id, deleteCountry, id)
}

func scanCity(s rowScanner) (core.City, error) {
	var c core.City
	err := s.Scan(&c.ID, &c.Name, &c.CountryID, &c.CountryName)
	return c, err
}

func (r *SQLiteRepository) CreateCity(ctx context.Context, c core.City) (int64, error) {
	return r.insert(ctx, "city", createCity, c.Name, c.CountryID)
}

func (r *SQLiteRepository) GetCity(ctx context.Context, id int64) (core.City, error) {
	c, err := scanCity(r.db.QueryRowContext(ctx, getCity, id))
	if err != nil {
		return core.City{}, notFound(err, "city", id)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCities(ctx context.Context) ([]core.City, error) {
	return listRows(ctx, r.db, "cities", listCities, scanCity)
}

func (r *SQLiteRepository) UpdateCity(ctx context.Context, c core.City) error {
	return r.execAffecting(ctx, "city", c.ID, updateCity, c.Name, c.CountryID, c.ID)
}

func (r *SQLiteRepository) DeleteCity(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "city", id, deleteCity, id)
}

// Orders

func (r *SQLiteRepository) ListOrderStatuses(ctx context.Context) ([]core.OrderStatus, error) {
	return listRows(ctx, r.db, "order statuses", listOrderStatuses, func(s rowScanner) (core.OrderStatus, error) {
		var st core.OrderStatus
		err := s.Scan(&st.ID, &st.Name)
		return st, err
	})
}

func scanOrder(s rowScanner) (core.Order, error) {
	var o core.Order
	err := s.Scan(&o.ID, &o.Quantity, &o.CustomerID, &o.PlantID, &o.OrderStatusID,
		&o.CustomerName, &o.PlantName, &o.StatusName)
	return o, err
}

func (r *SQLiteRepository) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	return r.insert(ctx, "order", createOrder, o.Quantity, o.CustomerID, o.PlantID, o.OrderStatusID)
}

func (r *SQLiteRepository) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrder, id))
	if err != nil {
		return core.Order{}, notFound(err, "order", id)
	}
	return o, nil
}

func (r *SQLiteRepository) ListOrders(ctx context.Context) ([]core.Order, error) {
	return listRows(ctx, r.db, "orders", listOrders, scanOrder)
}

func (r *SQLiteRepository) UpdateOrder(ctx context.Context, o core.Order) error {
	return r.execAffecting(ctx, "order", o.ID, updateOrder, o.Quantity, o.CustomerID, o.PlantID, o.OrderStatusID, o.ID)
}

func (r *SQLiteRepository) DeleteOrder(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "order", id, deleteOrder, id)
}

// Chores

func (r *SQLiteRepository) CreateChoreDefinition(ctx context.Context, cd core.ChoreDefinition) (int64, error) {
	return r.insert(ctx, "chore definition", createChoreDefinition, cd.Name, cd.Description)
}

func (r *SQLiteRepository) ListChoreDefinitions(ctx context.Context) ([]core.ChoreDefinition, error) {
	return listRows(ctx, r.db, "chore definitions", listChoreDefinitions, func(s rowScanner) (core.ChoreDefinition, error) {
		var cd core.ChoreDefinition
		err := s.Scan(&cd.ID, &cd.Name, &cd.Description)
		return cd, err
	})
}

func scanChore(s rowScanner) (core.Chore, error) {
	var c core.Chore
	err := s.Scan(&c.ID, &c.ChoreDefinitionID, &c.OrderStatusID, &c.PersonID,
		&c.ChoreName, &c.StatusName, &c.PersonName)
	return c, err
}

func (r *SQLiteRepository) CreateChore(ctx context.Context, c core.Chore) (int64, error) {
	return r.insert(ctx, "chore", createChore, c.ChoreDefinitionID, c.OrderStatusID, c.PersonID)
}

func (r *SQLiteRepository) GetChore(ctx context.Context, id int64) (core.Chore, error) {
	c, err := scanChore(r.db.QueryRowContext(ctx, getChore, id))
	if err != nil {
		return core.Chore{}, notFound(err, "chore", id)
	}
	return c, nil
}

func (r *SQLiteRepository) ListChores(ctx context.Context) ([]core.Chore, error) {
	return listRows(ctx, r.db, "chores", listChores, scanChore)
}

func (r *SQLiteRepository) UpdateChore(ctx context.Context, c core.Chore) error {
	return r.execAffecting(ctx, "chore", c.ID, updateChore, c.ChoreDefinitionID, c.OrderStatusID, c.PersonID, c.ID)
}

func (r *SQLiteRepository) DeleteChore(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "chore", id, deleteChore, id)
}

// Plots

func scanPlot(s rowScanner) (core.Plot, error) {
	var p core.Plot
	err := s.Scan(&p.ID, &p.Name)
	return p, err
}

func (r *SQLiteRepository) CreatePlot(ctx context.Context, p core.Plot) (int64, error) {
	return r.insert(ctx, "plot", createPlot, p.Name)
}

func (r *SQLiteRepository) GetPlot(ctx context.Context, id int64) (core.Plot, error) {
	p, err := scanPlot(r.db.QueryRowContext(ctx, getPlot, id))
	if err != nil {
		return core.Plot{}, notFound(err, "plot", id)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPlots(ctx context.Context) ([]core.Plot, error) {
	return listRows(ctx, r.db, "plots", listPlots, scanPlot)
}

func (r *SQLiteRepository) UpdatePlot(ctx context.Context, p core.Plot) error {
	return r.execAffecting(ctx, "plot", p.ID, updatePlot, p.Name, p.ID)
}

// DeletePlot removes the plot. Its ledger entries are kept as farm-wide
// entries so that global totals do not change.
func (r *SQLiteRepository) DeletePlot(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, detachPlotRows, id); err != nil {
			return fmt.Errorf("detach ledger entries of plot %d: %w", id, err)
		}
		return deleteInTx(ctx, tx, "plot", id, deletePlot)
	})
}

// Ledger

func scanLedgerEntry(s rowScanner) (core.LedgerEntry, error) {
	var (
		e      core.LedgerEntry
		amount sql.NullInt64
		plot   sql.NullInt64
	)
	if err := s.Scan(&e.ID, &amount, &plot, &e.Description, &e.Date); err != nil {
		return core.LedgerEntry{}, err
	}
	if amount.Valid {
		e.Amount = core.AmountFromCents(amount.Int64)
	}
	e.PlotID = idPtr(plot)
	return e, nil
}

// ledgerArgs validates the amount before it reaches the database: a
// malformed value is rejected rather than stored as NULL.
func ledgerArgs(e core.LedgerEntry) (sql.NullInt64, time.Time, error) {
	cents, present, err := e.Amount.Cents()
	if err != nil {
		return sql.NullInt64{}, time.Time{}, err
	}
	date := e.Date
	if date.IsZero() {
		date = time.Now()
	}
	return sql.NullInt64{Int64: cents, Valid: present}, date.UTC(), nil
}

func (r *SQLiteRepository) CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (int64, error) {
	amount, date, err := ledgerArgs(e)
	if err != nil {
		return 0, err
	}
	return r.insert(ctx, "ledger entry", createLedgerEntry, amount, nullID(e.PlotID), e.Description, date)
}

func (r *SQLiteRepository) GetLedgerEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	e, err := scanLedgerEntry(r.db.QueryRowContext(ctx, getLedgerEntry, id))
	if err != nil {
		return core.LedgerEntry{}, notFound(err, "ledger entry", id)
	}
	return e, nil
}

func (r *SQLiteRepository) ListLedgerEntries(ctx context.Context) ([]core.LedgerEntry, error) {
	return listRows(ctx, r.db, "ledger entries", listLedgerEntries, scanLedgerEntry)
}

func (r *SQLiteRepository) UpdateLedgerEntry(ctx context.Context, e core.LedgerEntry) error {
	amount, date, err := ledgerArgs(e)
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, "ledger entry", e.ID, updateLedgerEntry, amount, nullID(e.PlotID), e.Description, date, e.ID)
}

func (r *SQLiteRepository) DeleteLedgerEntry(ctx context.Context, id int64) error {
	return r.execAffecting(ctx, "ledger entry", id, deleteLedgerEntry, id)
}

// ReadSummary implements ports.SummaryReader with grouped queries instead
// of loading every ledger row into memory.
func (r *SQLiteRepository) ReadSummary(ctx context.Context) (core.DashboardSummary, error) {
	var s core.DashboardSummary
	err := r.db.QueryRowContext(ctx, summaryTotals).Scan(
		&s.OrderCount, &s.ChoreCount, &s.PersonCount, &s.TotalIncome.Cents, &s.TotalExpense.Cents)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("read summary totals: %w", sumOverflow(err))
	}

	rows, err := listRows(ctx, r.db, "plot summaries", summaryByPlot, func(sc rowScanner) (core.PlotSummary, error) {
		var p core.PlotSummary
		if err := sc.Scan(&p.PlotID, &p.PlotName, &p.Income.Cents, &p.Expense.Cents); err != nil {
			return core.PlotSummary{}, err
		}
		p.Balance = core.Money{Cents: p.Income.Cents - p.Expense.Cents}
		return p, nil
	})
	if err != nil {
		return core.DashboardSummary{}, sumOverflow(err)
	}
	s.PerPlot = rows

	slog.DebugContext(ctx, "Summary read from SQLite",
		"orders", s.OrderCount,
		"plots", len(s.PerPlot),
		"income_cents", s.TotalIncome.Cents,
		"expense_cents", s.TotalExpense.Cents)
	return s, nil
}

// sumOverflow turns SQLite's SUM overflow into the ValidationError that
// core.Summarize reports for the same ledger.
func sumOverflow(err error) error {
	if strings.Contains(err.Error(), "integer overflow") {
		return fmt.Errorf("%w: %v", &core.ValidationError{Field: "amount", Reason: "total out of range"}, err)
	}
	return err
}

// SaveSnapshot stores s and prunes old snapshots.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.DashboardSummary, computedAt time.Time) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, saveSnapshot, string(body), computedAt.UTC()); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, pruneSnapshots, keptSnapshots); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) LatestSnapshot(ctx context.Context) (core.DashboardSummary, time.Time, error) {
	var (
		body       string
		computedAt time.Time
	)
	if err := r.db.QueryRowContext(ctx, latestSnapshot).Scan(&body, &computedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.DashboardSummary{}, time.Time{}, &core.NotFoundError{Entity: "dashboard snapshot"}
		}
		return core.DashboardSummary{}, time.Time{}, fmt.Errorf("latest snapshot: %w", err)
	}
	var s core.DashboardSummary
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return core.DashboardSummary{}, time.Time{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return s, computedAt, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func deleteInTx(ctx context.Context, tx *sql.Tx, entity string, id int64, query string) error {
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", entity, id, constraint(err, entity, id, true))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
