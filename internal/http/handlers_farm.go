package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"eoranica/internal/core"
	"eoranica/internal/log"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type formField struct {
	Name     string
	Label    string
	Type     string // text, number, date, email, select, textarea
	Value    string
	Options  []option
	Required bool
}

type entityRow struct {
	ID    int64
	Cells []string
}

// entityPage feeds entity.html. EditID is zero on the list page.
type entityPage struct {
	Title     string
	Path      string
	Columns   []string
	Rows      []entityRow
	Fields    []formField
	EditID    int64
	CanEdit   bool
	CanDelete bool
	Error     string
}

// resource describes one record type served under path. Nil get, update
// or remove leave the matching routes unregistered.
type resource[T any] struct {
	path    string
	entity  string
	title   string
	columns []string

	id     func(T) int64
	setID  func(*T, int64)
	list   func(context.Context) ([]T, error)
	get    func(context.Context, int64) (T, error)
	create func(context.Context, T) (int64, error)
	update func(context.Context, T) error
	remove func(context.Context, int64) error

	decode func(*RequestBodyParser) (T, error)
	// cells returns the row renderer; it may load lookup tables first.
	cells  func(context.Context) (func(T) []string, error)
	fields func(context.Context, T) ([]formField, error)
}

func (res resource[T]) page() entityPage {
	return entityPage{
		Title:     res.title,
		Path:      res.path,
		Columns:   res.columns,
		CanEdit:   res.get != nil && res.update != nil,
		CanDelete: res.remove != nil,
	}
}

// listPage builds the table plus a creation form filled with draft.
func (res resource[T]) listPage(ctx context.Context, draft T) (entityPage, error) {
	items, err := res.list(ctx)
	if err != nil {
		return entityPage{}, err
	}
	cells, err := res.cells(ctx)
	if err != nil {
		return entityPage{}, err
	}
	page := res.page()
	page.Rows = make([]entityRow, 0, len(items))
	for _, it := range items {
		page.Rows = append(page.Rows, entityRow{ID: res.id(it), Cells: cells(it)})
	}
	if page.Fields, err = res.fields(ctx, draft); err != nil {
		return entityPage{}, err
	}
	return page, nil
}

func (res resource[T]) editPage(ctx context.Context, id int64, v T) (entityPage, error) {
	page := res.page()
	page.EditID = id
	var err error
	page.Fields, err = res.fields(ctx, v)
	return page, err
}

func register[T any](s *Server, mux *http.ServeMux, res resource[T]) {
	mux.HandleFunc("GET "+res.path, func(w http.ResponseWriter, r *http.Request) {
		listRecords(s, w, r, res)
	})
	mux.HandleFunc("POST "+res.path, func(w http.ResponseWriter, r *http.Request) {
		createRecord(s, w, r, res)
	})
	if res.get != nil {
		mux.HandleFunc("GET "+res.path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			showRecord(s, w, r, res)
		})
	}
	if res.update != nil {
		update := func(w http.ResponseWriter, r *http.Request) { updateRecord(s, w, r, res) }
		mux.HandleFunc("POST "+res.path+"/{id}", update)
		mux.HandleFunc("PUT "+res.path+"/{id}", update)
	}
	if res.remove != nil {
		remove := func(w http.ResponseWriter, r *http.Request) { deleteRecord(s, w, r, res) }
		mux.HandleFunc("POST "+res.path+"/{id}/delete", remove)
		mux.HandleFunc("DELETE "+res.path+"/{id}", remove)
	}
}

func listRecords[T any](s *Server, w http.ResponseWriter, r *http.Request, res resource[T]) {
	ctx := r.Context()
	if wantsJSON(r) {
		items, err := res.list(ctx)
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		NewResponse().JSON(items).Write(w)
		return
	}

	var zero T
	page, err := res.listPage(ctx, zero)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "entity.html", page)
}

// invalid re-renders the form with the rejected values for browsers.
func invalid[T any](s *Server, w http.ResponseWriter, r *http.Request, res resource[T], editID int64, v T, op string, err error) {
	if wantsJSON(r) || !errors.Is(err, core.ErrValidation) {
		s.fail(w, r, op, err)
		return
	}
	var (
		page    entityPage
		pageErr error
	)
	if editID == 0 {
		page, pageErr = res.listPage(r.Context(), v)
	} else {
		page, pageErr = res.editPage(r.Context(), editID, v)
	}
	if pageErr != nil {
		s.fail(w, r, op, pageErr)
		return
	}
	page.Error = err.Error()
	s.render(w, r, http.StatusUnprocessableEntity, "entity.html", page)
}

func createRecord[T any](s *Server, w http.ResponseWriter, r *http.Request, res resource[T]) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	v, err := res.decode(p)
	if err != nil {
		invalid(s, w, r, res, 0, v, log.OpCreate, err)
		return
	}
	id, err := res.create(r.Context(), v)
	if err != nil {
		invalid(s, w, r, res, 0, v, log.OpCreate, err)
		return
	}
	s.appMetrics.writes.Add(1)

	b := NewResponse().TriggerChanged(res.entity, id, log.OpCreate)
	if wantsJSON(r) {
		b.Status(http.StatusCreated).JSON(map[string]int64{"id": id}).Write(w)
		return
	}
	b.Redirect(res.path).Write(w)
}

func showRecord[T any](s *Server, w http.ResponseWriter, r *http.Request, res resource[T]) {
	id, err := pathID(r, res.entity)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	v, err := res.get(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	if wantsJSON(r) {
		NewResponse().JSON(v).Write(w)
		return
	}
	page, err := res.editPage(r.Context(), id, v)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "entity.html", page)
}

func updateRecord[T any](s *Server, w http.ResponseWriter, r *http.Request, res resource[T]) {
	id, err := pathID(r, res.entity)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	v, err := res.decode(p)
	res.setID(&v, id)
	if err == nil {
		err = res.update(r.Context(), v)
	}
	if err != nil {
		invalid(s, w, r, res, id, v, log.OpUpdate, err)
		return
	}
	s.appMetrics.writes.Add(1)

	b := NewResponse().TriggerChanged(res.entity, id, log.OpUpdate)
	if wantsJSON(r) {
		b.JSON(map[string]int64{"id": id}).Write(w)
		return
	}
	b.Redirect(res.path).Write(w)
}

func deleteRecord[T any](s *Server, w http.ResponseWriter, r *http.Request, res resource[T]) {
	id, err := pathID(r, res.entity)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := res.remove(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.appMetrics.writes.Add(1)

	b := NewResponse().TriggerChanged(res.entity, id, log.OpDelete)
	if wantsJSON(r) || r.Method == http.MethodDelete {
		b.Status(http.StatusNoContent).Write(w)
		return
	}
	b.Redirect(res.path).Write(w)
}

func fixedCells[T any](f func(T) []string) func(context.Context) (func(T) []string, error) {
	return func(context.Context) (func(T) []string, error) { return f, nil }
}

func plainFields[T any](f func(T) []formField) func(context.Context, T) ([]formField, error) {
	return func(_ context.Context, v T) ([]formField, error) { return f(v), nil }
}

// options turns records into select options. With none set the first
// option is an empty choice.
func options[T any](items []T, id func(T) int64, label func(T) string, selected int64, none bool) []option {
	opts := make([]option, 0, len(items)+1)
	if none {
		opts = append(opts, option{Value: "", Label: "(none)", Selected: selected == 0})
	}
	for _, it := range items {
		v := id(it)
		opts = append(opts, option{Value: strconv.FormatInt(v, 10), Label: label(it), Selected: v == selected})
	}
	return opts
}

func amountText(a core.Amount) string {
	cents, present, err := a.Cents()
	if err != nil {
		return string(a)
	}
	if !present {
		return ""
	}
	return formatEuros(cents)
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
