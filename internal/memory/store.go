// Package memory is an in-process backend used for local development and
// tests. Data is lost on restart.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"eoranica/internal/core"
	"eoranica/internal/ports"
)

// table keeps rows in insertion order, which is also id order.
type table[T any] struct {
	next int64
	rows []T
	id   func(T) int64
}

func newTable[T any](id func(T) int64) *table[T] {
	return &table[T]{next: 1, id: id}
}

func (t *table[T]) insert(set func(*T, int64), v T) int64 {
	id := t.next
	t.next++
	set(&v, id)
	t.rows = append(t.rows, v)
	return id
}

func (t *table[T]) index(id int64) int {
	for i, r := range t.rows {
		if t.id(r) == id {
			return i
		}
	}
	return -1
}

func (t *table[T]) get(entity string, id int64) (T, error) {
	if i := t.index(id); i >= 0 {
		return t.rows[i], nil
	}
	var zero T
	return zero, &core.NotFoundError{Entity: entity, ID: id}
}

func (t *table[T]) replace(entity string, v T) error {
	i := t.index(t.id(v))
	if i < 0 {
		return &core.NotFoundError{Entity: entity, ID: t.id(v)}
	}
	t.rows[i] = v
	return nil
}

func (t *table[T]) remove(entity string, id int64) error {
	i := t.index(id)
	if i < 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

func (t *table[T]) list() []T {
	return append([]T{}, t.rows...)
}

type snapshot struct {
	summary    core.DashboardSummary
	computedAt time.Time
}

type Store struct {
	mu        sync.RWMutex
	people    *table[core.Person]
	passports *table[core.PlantPassport]
	plants    *table[core.Plant]
	countries *table[core.Country]
	cities    *table[core.City]
	statuses  *table[core.OrderStatus]
	orders    *table[core.Order]
	choreDefs *table[core.ChoreDefinition]
	chores    *table[core.Chore]
	plots     *table[core.Plot]
	ledger    *table[core.LedgerEntry]
	latest    *snapshot
}

// Store does not implement ports.SummaryReader: its summaries go through
// core.Summarize.
var _ ports.Repository = (*Store)(nil)

// New returns an empty store with the default order statuses.
func New() *Store {
	s := &Store{
		people:    newTable(func(v core.Person) int64 { return v.ID }),
		passports: newTable(func(v core.PlantPassport) int64 { return v.ID }),
		plants:    newTable(func(v core.Plant) int64 { return v.ID }),
		countries: newTable(func(v core.Country) int64 { return v.ID }),
		cities:    newTable(func(v core.City) int64 { return v.ID }),
		statuses:  newTable(func(v core.OrderStatus) int64 { return v.ID }),
		orders:    newTable(func(v core.Order) int64 { return v.ID }),
		choreDefs: newTable(func(v core.ChoreDefinition) int64 { return v.ID }),
		chores:    newTable(func(v core.Chore) int64 { return v.ID }),
		plots:     newTable(func(v core.Plot) int64 { return v.ID }),
		ledger:    newTable(func(v core.LedgerEntry) int64 { return v.ID }),
	}
	for _, name := range core.DefaultOrderStatuses {
		s.statuses.insert(func(v *core.OrderStatus, id int64) { v.ID = id }, core.OrderStatus{Name: name})
	}
	return s
}

// NewFromFiles seeds plots and chore definitions from seed_plots.txt and
// seed_chores.txt in base, one name per line. Missing files are ignored.
func NewFromFiles(base string) *Store {
	s := New()
	ctx := context.Background()
	for _, name := range readLines(filepath.Join(base, "seed_plots.txt")) {
		_, _ = s.CreatePlot(ctx, core.Plot{Name: name})
	}
	for _, name := range readLines(filepath.Join(base, "seed_chores.txt")) {
		_, _ = s.CreateChoreDefinition(ctx, core.ChoreDefinition{Name: name})
	}
	return s
}

// People

func (s *Store) CreatePerson(_ context.Context, p core.Person) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.people.insert(func(v *core.Person, id int64) { v.ID = id }, p), nil
}

func (s *Store) GetPerson(_ context.Context, id int64) (core.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.people.get("person", id)
}

func (s *Store) ListPeople(_ context.Context) ([]core.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.people.list(), nil
}

func (s *Store) UpdatePerson(_ context.Context, p core.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.people.replace("person", p)
}

// DeletePerson refuses to orphan orders or chores, like the SQL schema.
func (s *Store) DeletePerson(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders.rows {
		if o.CustomerID == id {
			return inUse("person", id)
		}
	}
	for _, c := range s.chores.rows {
		if c.PersonID == id {
			return inUse("person", id)
		}
	}
	return s.people.remove("person", id)
}

func inUse(entity string, id int64) error {
	return &core.ValidationError{Field: entity, Value: strconv.FormatInt(id, 10), Reason: "still in use"}
}

func (s *Store) CountPeople(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people.rows), nil
}

// Plants and passports

func (s *Store) CreatePlant(_ context.Context, p core.Plant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plants.insert(func(v *core.Plant, id int64) { v.ID = id }, p), nil
}

func (s *Store) GetPlant(_ context.Context, id int64) (core.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plants.get("plant", id)
}

func (s *Store) ListPlants(_ context.Context) ([]core.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plants.list(), nil
}

func (s *Store) UpdatePlant(_ context.Context, p core.Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plants.replace("plant", p)
}

func (s *Store) DeletePlant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders.rows {
		if o.PlantID == id {
			return inUse("plant", id)
		}
	}
	return s.plants.remove("plant", id)
}

func (s *Store) CreatePassport(_ context.Context, pp core.PlantPassport) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passports.insert(func(v *core.PlantPassport, id int64) { v.ID = id }, pp), nil
}

func (s *Store) GetPassport(_ context.Context, id int64) (core.PlantPassport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passports.get("plant passport", id)
}

func (s *Store) ListPassports(_ context.Context) ([]core.PlantPassport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passports.list(), nil
}

func (s *Store) DeletePassport(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.passports.remove("plant passport", id); err != nil {
		return err
	}
	for i := range s.plants.rows {
		if p := s.plants.rows[i].PassportID; p != nil && *p == id {
			s.plants.rows[i].PassportID = nil
		}
	}
	return nil
}

// Countries and cities

// uniqueCountry rejects a name already used by another country.
func (s *Store) uniqueCountry(c core.Country) error {
	for _, other := range s.countries.rows {
		if other.ID != c.ID && other.Name == c.Name {
			return &core.ValidationError{Field: "name", Value: c.Name, Reason: "already exists"}
		}
	}
	return nil
}

func (s *Store) CreateCountry(_ context.Context, c core.Country) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uniqueCountry(c); err != nil {
		return 0, err
	}
	return s.countries.insert(func(v *core.Country, id int64) { v.ID = id }, c), nil
}

func (s *Store) GetCountry(_ context.Context, id int64) (core.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countries.get("country", id)
}

// ListCountries returns countries sorted by name.
func (s *Store) ListCountries(_ context.Context) ([]core.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.countries.list()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCountry(_ context.Context, c core.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uniqueCountry(c); err != nil {
		return err
	}
	return s.countries.replace("country", c)
}

// DeleteCountry also deletes the country's cities.
func (s *Store) DeleteCountry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.countries.remove("country", id); err != nil {
		return err
	}
	kept := s.cities.rows[:0]
	for _, c := range s.cities.rows {
		if c.CountryID != id {
			kept = append(kept, c)
		}
	}
	s.cities.rows = kept
	return nil
}

func (s *Store) CreateCity(_ context.Context, c core.City) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cities.insert(func(v *core.City, id int64) { v.ID = id }, c), nil
}

func (s *Store) GetCity(_ context.Context, id int64) (core.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.cities.get("city", id)
	if err != nil {
		return core.City{}, err
	}
	return s.joinCity(c), nil
}

// ListCities returns cities sorted by country name, then city name.
func (s *Store) ListCities(_ context.Context) ([]core.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cities.list()
	for i := range out {
		out[i] = s.joinCity(out[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CountryName != out[j].CountryName {
			return out[i].CountryName < out[j].CountryName
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateCity(_ context.Context, c core.City) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cities.replace("city", c)
}

func (s *Store) DeleteCity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cities.remove("city", id)
}

func (s *Store) joinCity(c core.City) core.City {
	c.CountryName = ""
	if co, err := s.countries.get("country", c.CountryID); err == nil {
		c.CountryName = co.Name
	}
	return c
}

// Orders

func (s *Store) ListOrderStatuses(_ context.Context) ([]core.OrderStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses.list(), nil
}

func (s *Store) CreateOrder(_ context.Context, o core.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.insert(func(v *core.Order, id int64) { v.ID = id }, o), nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, err := s.orders.get("order", id)
	if err != nil {
		return core.Order{}, err
	}
	return s.joinOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context) ([]core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.orders.list()
	for i := range out {
		out[i] = s.joinOrder(out[i])
	}
	return out, nil
}

func (s *Store) UpdateOrder(_ context.Context, o core.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.replace("order", o)
}

func (s *Store) DeleteOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.remove("order", id)
}

// joinOrder fills the display names the SQL backend gets from joins.
func (s *Store) joinOrder(o core.Order) core.Order {
	o.CustomerName, o.PlantName, o.StatusName = "", "", ""
	if p, err := s.people.get("person", o.CustomerID); err == nil {
		o.CustomerName = p.FullName()
	}
	if p, err := s.plants.get("plant", o.PlantID); err == nil {
		o.PlantName = p.Name
	}
	if st, err := s.statuses.get("order status", o.OrderStatusID); err == nil {
		o.StatusName = st.Name
	}
	return o
}

// Chores

func (s *Store) CreateChoreDefinition(_ context.Context, cd core.ChoreDefinition) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choreDefs.insert(func(v *core.ChoreDefinition, id int64) { v.ID = id }, cd), nil
}

func (s *Store) ListChoreDefinitions(_ context.Context) ([]core.ChoreDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.choreDefs.list(), nil
}

func (s *Store) CreateChore(_ context.Context, c core.Chore) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chores.insert(func(v *core.Chore, id int64) { v.ID = id }, c), nil
}

func (s *Store) GetChore(_ context.Context, id int64) (core.Chore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.chores.get("chore", id)
	if err != nil {
		return core.Chore{}, err
	}
	return s.joinChore(c), nil
}

func (s *Store) ListChores(_ context.Context) ([]core.Chore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.chores.list()
	for i := range out {
		out[i] = s.joinChore(out[i])
	}
	return out, nil
}

func (s *Store) UpdateChore(_ context.Context, c core.Chore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chores.replace("chore", c)
}

func (s *Store) DeleteChore(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chores.remove("chore", id)
}

func (s *Store) joinChore(c core.Chore) core.Chore {
	c.ChoreName, c.StatusName, c.PersonName = "", "", ""
	if d, err := s.choreDefs.get("chore definition", c.ChoreDefinitionID); err == nil {
		c.ChoreName = d.Name
	}
	if st, err := s.statuses.get("order status", c.OrderStatusID); err == nil {
		c.StatusName = st.Name
	}
	if p, err := s.people.get("person", c.PersonID); err == nil {
		c.PersonName = p.FullName()
	}
	return c
}

// Plots

func (s *Store) CreatePlot(_ context.Context, p core.Plot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plots.insert(func(v *core.Plot, id int64) { v.ID = id }, p), nil
}

func (s *Store) GetPlot(_ context.Context, id int64) (core.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plots.get("plot", id)
}

func (s *Store) ListPlots(_ context.Context) ([]core.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plots.list(), nil
}

func (s *Store) UpdatePlot(_ context.Context, p core.Plot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plots.replace("plot", p)
}

// DeletePlot keeps the plot's ledger entries as farm-wide entries.
func (s *Store) DeletePlot(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.plots.remove("plot", id); err != nil {
		return err
	}
	for i := range s.ledger.rows {
		if p := s.ledger.rows[i].PlotID; p != nil && *p == id {
			s.ledger.rows[i].PlotID = nil
		}
	}
	return nil
}

// Ledger

// normalizeEntry stores amounts in the same canonical form the SQL backend
// returns, and rejects malformed ones.
func normalizeEntry(e core.LedgerEntry) (core.LedgerEntry, error) {
	cents, present, err := e.Amount.Cents()
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Amount = ""
	if present {
		e.Amount = core.AmountFromCents(cents)
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Date = e.Date.UTC()
	return e, nil
}

func (s *Store) CreateLedgerEntry(_ context.Context, e core.LedgerEntry) (int64, error) {
	e, err := normalizeEntry(e)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.insert(func(v *core.LedgerEntry, id int64) { v.ID = id }, e), nil
}

func (s *Store) GetLedgerEntry(_ context.Context, id int64) (core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.get("ledger entry", id)
}

// ListLedgerEntries returns the newest entries first.
func (s *Store) ListLedgerEntries(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.ledger.list()
	out := make([]core.LedgerEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *Store) UpdateLedgerEntry(_ context.Context, e core.LedgerEntry) error {
	e, err := normalizeEntry(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.replace("ledger entry", e)
}

func (s *Store) DeleteLedgerEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.remove("ledger entry", id)
}

// Snapshots

func (s *Store) SaveSnapshot(_ context.Context, summary core.DashboardSummary, computedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &snapshot{summary: summary, computedAt: computedAt.UTC()}
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context) (core.DashboardSummary, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return core.DashboardSummary{}, time.Time{}, &core.NotFoundError{Entity: "dashboard snapshot"}
	}
	return s.latest.summary, s.latest.computedAt, nil
}

func sortByDateDesc(entries []core.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
