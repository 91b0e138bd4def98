package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"eoranica/internal/amqp"
	"eoranica/internal/core"
	"eoranica/internal/log"
	"eoranica/internal/ports"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishChange(ctx context.Context, ev *amqp.ChangeEvent) error
}

// Invalidator drops cached summaries. Satisfied by *DashboardService.
type Invalidator interface {
	Invalidate()
}

// Entity names carried by change events.
const (
	EntityPerson      = "person"
	EntityPlant       = "plant"
	EntityPassport    = "plant_passport"
	EntityCountry     = "country"
	EntityCity        = "city"
	EntityOrder       = "order"
	EntityChoreDef    = "chore_definition"
	EntityChore       = "chore"
	EntityPlot        = "plot"
	EntityLedgerEntry = "ledger_entry"
)

// FarmService validates writes, stores them and announces the change.
// Reads go straight to the embedded repository.
type FarmService struct {
	ports.Repository
	publisher EventPublisher
	dashboard Invalidator
	logger    *log.StructuredLogger
}

// NewFarmService accepts nil publisher and dashboard.
func NewFarmService(repo ports.Repository, publisher EventPublisher, dashboard Invalidator) *FarmService {
	return &FarmService{
		Repository: repo,
		publisher:  publisher,
		dashboard:  dashboard,
		logger:     log.NewStructuredLogger(log.FromSlog(nil, log.ComponentFarm)),
	}
}

// changed runs after every successful write. Publishing failures are
// logged and never fail the request: the data is already stored.
func (s *FarmService) changed(ctx context.Context, entity string, id int64, op amqp.Op) {
	if s.dashboard != nil {
		s.dashboard.Invalidate()
	}
	s.logger.LogChange(ctx, entity, id, string(op))

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewChangeEvent(entity, id, op)); err != nil {
		s.logger.LogError(ctx, "Failed to publish change event", err, log.ComponentAMQP, string(op),
			log.NewFields().WithEntity(entity, id))
	}
}

type validator interface{ Validate() error }

// ref names a row that a record points at. Zero ids are skipped; Validate
// has already rejected the required ones.
type ref struct {
	field  string
	id     int64
	exists func(context.Context, int64) error
}

// checkRefs rejects a write pointing at a missing row before it reaches the
// backend, so SQLite and the memory store fail the same way.
func (s *FarmService) checkRefs(ctx context.Context, refs ...ref) error {
	for _, r := range refs {
		if r.id == 0 {
			continue
		}
		if err := r.exists(ctx, r.id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return &core.ValidationError{Field: r.field, Value: strconv.FormatInt(r.id, 10), Reason: "does not exist"}
			}
			return fmt.Errorf("check %s: %w", r.field, err)
		}
	}
	return nil
}

func found[T any](get func(context.Context, int64) (T, error)) func(context.Context, int64) error {
	return func(ctx context.Context, id int64) error {
		_, err := get(ctx, id)
		return err
	}
}

// listed is found for tables that only offer List.
func listed[T any](entity string, list func(context.Context) ([]T, error), idOf func(T) int64) func(context.Context, int64) error {
	return func(ctx context.Context, id int64) error {
		rows, err := list(ctx)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if idOf(r) == id {
				return nil
			}
		}
		return &core.NotFoundError{Entity: entity, ID: id}
	}
}

func optional(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func (s *FarmService) plantRefs(ctx context.Context, p core.Plant) error {
	return s.checkRefs(ctx, ref{"passport_id", optional(p.PassportID), found(s.Repository.GetPassport)})
}

func (s *FarmService) cityRefs(ctx context.Context, c core.City) error {
	return s.checkRefs(ctx, ref{"country_id", c.CountryID, found(s.Repository.GetCountry)})
}

func (s *FarmService) orderRefs(ctx context.Context, o core.Order) error {
	return s.checkRefs(ctx,
		ref{"customer_id", o.CustomerID, found(s.Repository.GetPerson)},
		ref{"plant_id", o.PlantID, found(s.Repository.GetPlant)},
		ref{"order_status_id", o.OrderStatusID, listed("order status", s.Repository.ListOrderStatuses,
			func(st core.OrderStatus) int64 { return st.ID })},
	)
}

func (s *FarmService) choreRefs(ctx context.Context, c core.Chore) error {
	return s.checkRefs(ctx,
		ref{"chore_id", c.ChoreDefinitionID, listed("chore definition", s.Repository.ListChoreDefinitions,
			func(cd core.ChoreDefinition) int64 { return cd.ID })},
		ref{"order_status_id", c.OrderStatusID, listed("order status", s.Repository.ListOrderStatuses,
			func(st core.OrderStatus) int64 { return st.ID })},
		ref{"person_id", c.PersonID, found(s.Repository.GetPerson)},
	)
}

func (s *FarmService) ledgerRefs(ctx context.Context, e core.LedgerEntry) error {
	return s.checkRefs(ctx, ref{"plot_id", optional(e.PlotID), found(s.Repository.GetPlot)})
}

func create(ctx context.Context, s *FarmService, entity string, v validator, store func() (int64, error)) (int64, error) {
	if err := v.Validate(); err != nil {
		return 0, err
	}
	id, err := store()
	if err != nil {
		return 0, wrapWrite("create", entity, err)
	}
	s.changed(ctx, entity, id, amqp.OpCreate)
	return id, nil
}

func update(ctx context.Context, s *FarmService, entity string, id int64, v validator, store func() error) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if err := store(); err != nil {
		return wrapWrite("update", entity, err)
	}
	s.changed(ctx, entity, id, amqp.OpUpdate)
	return nil
}

func remove(ctx context.Context, s *FarmService, entity string, id int64, store func() error) error {
	if err := store(); err != nil {
		return wrapWrite("delete", entity, err)
	}
	s.changed(ctx, entity, id, amqp.OpDelete)
	return nil
}

// wrapWrite returns typed domain errors unwrapped so their message reaches
// the form as is. Anything else gets the operation as context.
func wrapWrite(op, entity string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, entity, err)
}

func (s *FarmService) CreatePerson(ctx context.Context, p core.Person) (int64, error) {
	return create(ctx, s, EntityPerson, p, func() (int64, error) { return s.Repository.CreatePerson(ctx, p) })
}

func (s *FarmService) UpdatePerson(ctx context.Context, p core.Person) error {
	return update(ctx, s, EntityPerson, p.ID, p, func() error { return s.Repository.UpdatePerson(ctx, p) })
}

func (s *FarmService) DeletePerson(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityPerson, id, func() error { return s.Repository.DeletePerson(ctx, id) })
}

func (s *FarmService) CreatePlant(ctx context.Context, p core.Plant) (int64, error) {
	return create(ctx, s, EntityPlant, p, func() (int64, error) {
		if err := s.plantRefs(ctx, p); err != nil {
			return 0, err
		}
		return s.Repository.CreatePlant(ctx, p)
	})
}

func (s *FarmService) UpdatePlant(ctx context.Context, p core.Plant) error {
	return update(ctx, s, EntityPlant, p.ID, p, func() error {
		if err := s.plantRefs(ctx, p); err != nil {
			return err
		}
		return s.Repository.UpdatePlant(ctx, p)
	})
}

func (s *FarmService) DeletePlant(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityPlant, id, func() error { return s.Repository.DeletePlant(ctx, id) })
}

func (s *FarmService) CreatePassport(ctx context.Context, pp core.PlantPassport) (int64, error) {
	return create(ctx, s, EntityPassport, pp, func() (int64, error) { return s.Repository.CreatePassport(ctx, pp) })
}

func (s *FarmService) DeletePassport(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityPassport, id, func() error { return s.Repository.DeletePassport(ctx, id) })
}

func (s *FarmService) CreateCountry(ctx context.Context, c core.Country) (int64, error) {
	return create(ctx, s, EntityCountry, c, func() (int64, error) { return s.Repository.CreateCountry(ctx, c) })
}

func (s *FarmService) UpdateCountry(ctx context.Context, c core.Country) error {
	return update(ctx, s, EntityCountry, c.ID, c, func() error { return s.Repository.UpdateCountry(ctx, c) })
}

func (s *FarmService) DeleteCountry(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityCountry, id, func() error { return s.Repository.DeleteCountry(ctx, id) })
}

func (s *FarmService) CreateCity(ctx context.Context, c core.City) (int64, error) {
	return create(ctx, s, EntityCity, c, func() (int64, error) {
		if err := s.cityRefs(ctx, c); err != nil {
			return 0, err
		}
		return s.Repository.CreateCity(ctx, c)
	})
}

func (s *FarmService) UpdateCity(ctx context.Context, c core.City) error {
	return update(ctx, s, EntityCity, c.ID, c, func() error {
		if err := s.cityRefs(ctx, c); err != nil {
			return err
		}
		return s.Repository.UpdateCity(ctx, c)
	})
}

func (s *FarmService) DeleteCity(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityCity, id, func() error { return s.Repository.DeleteCity(ctx, id) })
}

func (s *FarmService) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	return create(ctx, s, EntityOrder, o, func() (int64, error) {
		if err := s.orderRefs(ctx, o); err != nil {
			return 0, err
		}
		return s.Repository.CreateOrder(ctx, o)
	})
}

func (s *FarmService) UpdateOrder(ctx context.Context, o core.Order) error {
	return update(ctx, s, EntityOrder, o.ID, o, func() error {
		if err := s.orderRefs(ctx, o); err != nil {
			return err
		}
		return s.Repository.UpdateOrder(ctx, o)
	})
}

func (s *FarmService) DeleteOrder(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityOrder, id, func() error { return s.Repository.DeleteOrder(ctx, id) })
}

func (s *FarmService) CreateChoreDefinition(ctx context.Context, cd core.ChoreDefinition) (int64, error) {
	return create(ctx, s, EntityChoreDef, cd, func() (int64, error) { return s.Repository.CreateChoreDefinition(ctx, cd) })
}

func (s *FarmService) CreateChore(ctx context.Context, c core.Chore) (int64, error) {
	return create(ctx, s, EntityChore, c, func() (int64, error) {
		if err := s.choreRefs(ctx, c); err != nil {
			return 0, err
		}
		return s.Repository.CreateChore(ctx, c)
	})
}

func (s *FarmService) UpdateChore(ctx context.Context, c core.Chore) error {
	return update(ctx, s, EntityChore, c.ID, c, func() error {
		if err := s.choreRefs(ctx, c); err != nil {
			return err
		}
		return s.Repository.UpdateChore(ctx, c)
	})
}

func (s *FarmService) DeleteChore(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityChore, id, func() error { return s.Repository.DeleteChore(ctx, id) })
}

func (s *FarmService) CreatePlot(ctx context.Context, p core.Plot) (int64, error) {
	return create(ctx, s, EntityPlot, p, func() (int64, error) { return s.Repository.CreatePlot(ctx, p) })
}

func (s *FarmService) UpdatePlot(ctx context.Context, p core.Plot) error {
	return update(ctx, s, EntityPlot, p.ID, p, func() error { return s.Repository.UpdatePlot(ctx, p) })
}

func (s *FarmService) DeletePlot(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityPlot, id, func() error { return s.Repository.DeletePlot(ctx, id) })
}

func (s *FarmService) CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (int64, error) {
	return create(ctx, s, EntityLedgerEntry, e, func() (int64, error) {
		if err := s.ledgerRefs(ctx, e); err != nil {
			return 0, err
		}
		return s.Repository.CreateLedgerEntry(ctx, e)
	})
}

func (s *FarmService) UpdateLedgerEntry(ctx context.Context, e core.LedgerEntry) error {
	return update(ctx, s, EntityLedgerEntry, e.ID, e, func() error {
		if err := s.ledgerRefs(ctx, e); err != nil {
			return err
		}
		return s.Repository.UpdateLedgerEntry(ctx, e)
	})
}

func (s *FarmService) DeleteLedgerEntry(ctx context.Context, id int64) error {
	return remove(ctx, s, EntityLedgerEntry, id, func() error { return s.Repository.DeleteLedgerEntry(ctx, id) })
}

// Ping checks the backend when it supports it. The memory store always answers.
func (s *FarmService) Ping(ctx context.Context) error {
	if p, ok := s.Repository.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the repository and publisher if they hold resources.
func (s *FarmService) Close() error {
	var errs []error
	if c, ok := s.Repository.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
