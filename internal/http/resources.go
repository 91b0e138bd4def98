package http

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"eoranica/internal/core"
	"eoranica/internal/services"
)

func (s *Server) registerResources(mux *http.ServeMux) {
	f := s.farm

	register(s, mux, resource[core.Plot]{
		path: "/plots", entity: services.EntityPlot, title: "Plots",
		columns: []string{"Name"},
		id:      func(p core.Plot) int64 { return p.ID },
		setID:   func(p *core.Plot, id int64) { p.ID = id },
		list:    f.ListPlots, get: f.GetPlot, create: f.CreatePlot, update: f.UpdatePlot, remove: f.DeletePlot,
		decode: func(p *RequestBodyParser) (core.Plot, error) {
			return core.Plot{Name: p.Get("name")}, nil
		},
		cells: fixedCells(func(p core.Plot) []string { return []string{p.Name} }),
		fields: plainFields(func(p core.Plot) []formField {
			return []formField{{Name: "name", Label: "Name", Type: "text", Value: p.Name, Required: true}}
		}),
	})

	register(s, mux, resource[core.LedgerEntry]{
		path: "/ledger", entity: services.EntityLedgerEntry, title: "Ledger",
		columns: []string{"Date", "Description", "Plot", "Amount"},
		id:      func(e core.LedgerEntry) int64 { return e.ID },
		setID:   func(e *core.LedgerEntry, id int64) { e.ID = id },
		list:    f.ListLedgerEntries, get: f.GetLedgerEntry, create: f.CreateLedgerEntry,
		update: f.UpdateLedgerEntry, remove: f.DeleteLedgerEntry,
		decode: decodeLedgerEntry,
		cells: func(ctx context.Context) (func(core.LedgerEntry) []string, error) {
			names, err := s.plotNames(ctx)
			if err != nil {
				return nil, err
			}
			return func(e core.LedgerEntry) []string {
				return []string{formatDate(e.Date), e.Description, names[deref(e.PlotID)], amountText(e.Amount)}
			}, nil
		},
		fields: func(ctx context.Context, e core.LedgerEntry) ([]formField, error) {
			plots, err := f.ListPlots(ctx)
			if err != nil {
				return nil, err
			}
			return []formField{
				{Name: "amount", Label: "Amount (negative for expenses)", Type: "text", Value: string(e.Amount)},
				{Name: "plot_id", Label: "Plot", Type: "select",
					Options: options(plots, func(p core.Plot) int64 { return p.ID }, func(p core.Plot) string { return p.Name }, deref(e.PlotID), true)},
				{Name: "description", Label: "Description", Type: "text", Value: e.Description},
				{Name: "date", Label: "Date", Type: "date", Value: formatDate(e.Date)},
			}, nil
		},
	})

	register(s, mux, resource[core.Person]{
		path: "/people", entity: services.EntityPerson, title: "People",
		columns: []string{"First name", "Last name", "Email", "Phone"},
		id:      func(p core.Person) int64 { return p.ID },
		setID:   func(p *core.Person, id int64) { p.ID = id },
		list:    f.ListPeople, get: f.GetPerson, create: f.CreatePerson, update: f.UpdatePerson, remove: f.DeletePerson,
		decode: func(p *RequestBodyParser) (core.Person, error) {
			return core.Person{
				FirstName: p.Get("first_name"),
				LastName:  p.Get("last_name"),
				Email:     p.Get("email"),
				Phone:     p.Get("phone"),
			}, nil
		},
		cells: fixedCells(func(p core.Person) []string { return []string{p.FirstName, p.LastName, p.Email, p.Phone} }),
		fields: plainFields(func(p core.Person) []formField {
			return []formField{
				{Name: "first_name", Label: "First name", Type: "text", Value: p.FirstName, Required: true},
				{Name: "last_name", Label: "Last name", Type: "text", Value: p.LastName, Required: true},
				{Name: "email", Label: "Email", Type: "email", Value: p.Email},
				{Name: "phone", Label: "Phone", Type: "text", Value: p.Phone},
			}
		}),
	})

	register(s, mux, resource[core.PlantPassport]{
		path: "/passports", entity: services.EntityPassport, title: "Plant passports",
		columns: []string{"Certificate", "Country", "Issued", "Authority"},
		id:      func(pp core.PlantPassport) int64 { return pp.ID },
		setID:   func(pp *core.PlantPassport, id int64) { pp.ID = id },
		list:    f.ListPassports, create: f.CreatePassport, remove: f.DeletePassport,
		decode: func(p *RequestBodyParser) (core.PlantPassport, error) {
			issued, err := p.Date("date_of_issue")
			return core.PlantPassport{
				CertificateNumber: p.Get("certificate_number"),
				CountryOfOrigin:   p.Get("country_of_origin"),
				DateOfIssue:       issued,
				IssuingAuthority:  p.Get("issuing_authority"),
				Description:       p.Get("description"),
			}, err
		},
		cells: fixedCells(func(pp core.PlantPassport) []string {
			return []string{pp.CertificateNumber, pp.CountryOfOrigin, formatDate(pp.DateOfIssue), pp.IssuingAuthority}
		}),
		fields: plainFields(func(pp core.PlantPassport) []formField {
			return []formField{
				{Name: "certificate_number", Label: "Certificate number", Type: "text", Value: pp.CertificateNumber, Required: true},
				{Name: "country_of_origin", Label: "Country of origin", Type: "text", Value: pp.CountryOfOrigin},
				{Name: "date_of_issue", Label: "Date of issue", Type: "date", Value: formatDate(pp.DateOfIssue), Required: true},
				{Name: "issuing_authority", Label: "Issuing authority", Type: "text", Value: pp.IssuingAuthority},
				{Name: "description", Label: "Description", Type: "textarea", Value: pp.Description},
			}
		}),
	})

	register(s, mux, resource[core.Plant]{
		path: "/plants", entity: services.EntityPlant, title: "Plants",
		columns: []string{"Name", "Latin name", "Price", "Passport"},
		id:      func(p core.Plant) int64 { return p.ID },
		setID:   func(p *core.Plant, id int64) { p.ID = id },
		list:    f.ListPlants, get: f.GetPlant, create: f.CreatePlant, update: f.UpdatePlant, remove: f.DeletePlant,
		decode: func(p *RequestBodyParser) (core.Plant, error) {
			plant := core.Plant{Name: p.Get("name"), LatinName: p.Get("latin_name")}
			var err error
			if plant.Price, err = p.Money("price"); err != nil {
				return plant, err
			}
			plant.PassportID, err = p.OptionalInt64("passport_id")
			return plant, err
		},
		cells: func(ctx context.Context) (func(core.Plant) []string, error) {
			passports, err := f.ListPassports(ctx)
			if err != nil {
				return nil, err
			}
			certs := make(map[int64]string, len(passports))
			for _, pp := range passports {
				certs[pp.ID] = pp.CertificateNumber
			}
			return func(p core.Plant) []string {
				return []string{p.Name, p.LatinName, formatEuros(p.Price.Cents), certs[deref(p.PassportID)]}
			}, nil
		},
		fields: func(ctx context.Context, p core.Plant) ([]formField, error) {
			passports, err := f.ListPassports(ctx)
			if err != nil {
				return nil, err
			}
			price := ""
			if p.Price.Cents != 0 {
				price = core.FormatCents(p.Price.Cents)
			}
			return []formField{
				{Name: "name", Label: "Name", Type: "text", Value: p.Name, Required: true},
				{Name: "latin_name", Label: "Latin name", Type: "text", Value: p.LatinName},
				{Name: "price", Label: "Price", Type: "text", Value: price},
				{Name: "passport_id", Label: "Passport", Type: "select",
					Options: options(passports, func(pp core.PlantPassport) int64 { return pp.ID },
						func(pp core.PlantPassport) string { return pp.CertificateNumber }, deref(p.PassportID), true)},
			}, nil
		},
	})

	register(s, mux, resource[core.Country]{
		path: "/countries", entity: services.EntityCountry, title: "Countries",
		columns: []string{"Name"},
		id:      func(c core.Country) int64 { return c.ID },
		setID:   func(c *core.Country, id int64) { c.ID = id },
		list:    f.ListCountries, get: f.GetCountry, create: f.CreateCountry, update: f.UpdateCountry, remove: f.DeleteCountry,
		decode: func(p *RequestBodyParser) (core.Country, error) {
			return core.Country{Name: p.Get("name")}, nil
		},
		cells: fixedCells(func(c core.Country) []string { return []string{c.Name} }),
		fields: plainFields(func(c core.Country) []formField {
			return []formField{{Name: "name", Label: "Name", Type: "text", Value: c.Name, Required: true}}
		}),
	})

	register(s, mux, resource[core.City]{
		path: "/cities", entity: services.EntityCity, title: "Cities",
		columns: []string{"Name", "Country"},
		id:      func(c core.City) int64 { return c.ID },
		setID:   func(c *core.City, id int64) { c.ID = id },
		list:    f.ListCities, get: f.GetCity, create: f.CreateCity, update: f.UpdateCity, remove: f.DeleteCity,
		decode: func(p *RequestBodyParser) (c core.City, err error) {
			c.Name = p.Get("name")
			c.CountryID, err = p.Int64("country_id")
			return c, err
		},
		cells: fixedCells(func(c core.City) []string { return []string{c.Name, c.CountryName} }),
		fields: func(ctx context.Context, c core.City) ([]formField, error) {
			countries, err := f.ListCountries(ctx)
			if err != nil {
				return nil, err
			}
			return []formField{
				{Name: "name", Label: "Name", Type: "text", Value: c.Name, Required: true},
				{Name: "country_id", Label: "Country", Type: "select", Required: true,
					Options: options(countries, func(co core.Country) int64 { return co.ID },
						func(co core.Country) string { return co.Name }, c.CountryID, false)},
			}, nil
		},
	})

	register(s, mux, resource[core.Order]{
		path: "/orders", entity: services.EntityOrder, title: "Orders",
		columns: []string{"Customer", "Plant", "Quantity", "Status"},
		id:      func(o core.Order) int64 { return o.ID },
		setID:   func(o *core.Order, id int64) { o.ID = id },
		list:    f.ListOrders, get: f.GetOrder, create: f.CreateOrder, update: f.UpdateOrder, remove: f.DeleteOrder,
		decode: decodeOrder,
		cells: fixedCells(func(o core.Order) []string {
			return []string{o.CustomerName, o.PlantName, strconv.Itoa(o.Quantity), o.StatusName}
		}),
		fields: s.orderFields,
	})

	register(s, mux, resource[core.ChoreDefinition]{
		path: "/chore-definitions", entity: services.EntityChoreDef, title: "Chore definitions",
		columns: []string{"Name", "Description"},
		id:      func(cd core.ChoreDefinition) int64 { return cd.ID },
		setID:   func(cd *core.ChoreDefinition, id int64) { cd.ID = id },
		list:    f.ListChoreDefinitions, create: f.CreateChoreDefinition,
		decode: func(p *RequestBodyParser) (core.ChoreDefinition, error) {
			return core.ChoreDefinition{Name: p.Get("name"), Description: p.Get("description")}, nil
		},
		cells: fixedCells(func(cd core.ChoreDefinition) []string { return []string{cd.Name, cd.Description} }),
		fields: plainFields(func(cd core.ChoreDefinition) []formField {
			return []formField{
				{Name: "name", Label: "Name", Type: "text", Value: cd.Name, Required: true},
				{Name: "description", Label: "Description", Type: "textarea", Value: cd.Description},
			}
		}),
	})

	register(s, mux, resource[core.Chore]{
		path: "/chores", entity: services.EntityChore, title: "Chores",
		columns: []string{"Chore", "Person", "Status"},
		id:      func(c core.Chore) int64 { return c.ID },
		setID:   func(c *core.Chore, id int64) { c.ID = id },
		list:    f.ListChores, get: f.GetChore, create: f.CreateChore, update: f.UpdateChore, remove: f.DeleteChore,
		decode: decodeChore,
		cells: fixedCells(func(c core.Chore) []string {
			return []string{c.ChoreName, c.PersonName, c.StatusName}
		}),
		fields: s.choreFields,
	})
}

func decodeLedgerEntry(p *RequestBodyParser) (core.LedgerEntry, error) {
	e := core.LedgerEntry{
		Amount:      core.Amount(p.Get("amount")),
		Description: p.Get("description"),
	}
	var err error
	if e.PlotID, err = p.OptionalInt64("plot_id"); err != nil {
		return e, err
	}
	e.Date, err = p.Date("date")
	return e, err
}

func decodeOrder(p *RequestBodyParser) (o core.Order, err error) {
	if o.Quantity, err = p.Int("quantity"); err != nil {
		return o, err
	}
	if o.CustomerID, err = p.Int64("customer_id"); err != nil {
		return o, err
	}
	if o.PlantID, err = p.Int64("plant_id"); err != nil {
		return o, err
	}
	o.OrderStatusID, err = p.Int64("order_status_id")
	return o, err
}

func decodeChore(p *RequestBodyParser) (c core.Chore, err error) {
	if c.ChoreDefinitionID, err = p.Int64("chore_id"); err != nil {
		return c, err
	}
	if c.PersonID, err = p.Int64("person_id"); err != nil {
		return c, err
	}
	c.OrderStatusID, err = p.Int64("order_status_id")
	return c, err
}

func (s *Server) plotNames(ctx context.Context) (map[int64]string, error) {
	plots, err := s.farm.ListPlots(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(plots))
	for _, p := range plots {
		names[p.ID] = p.Name
	}
	return names, nil
}

func personID(p core.Person) int64 { return p.ID }
func statusID(st core.OrderStatus) int64 { return st.ID }
func statusName(st core.OrderStatus) string { return st.Name }

func (s *Server) orderFields(ctx context.Context, o core.Order) ([]formField, error) {
	var (
		people   []core.Person
		plants   []core.Plant
		statuses []core.OrderStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { people, err = s.farm.ListPeople(gctx); return err })
	g.Go(func() (err error) { plants, err = s.farm.ListPlants(gctx); return err })
	g.Go(func() (err error) { statuses, err = s.farm.ListOrderStatuses(gctx); return err })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quantity := ""
	if o.Quantity != 0 {
		quantity = strconv.Itoa(o.Quantity)
	}
	return []formField{
		{Name: "customer_id", Label: "Customer", Type: "select", Required: true,
			Options: options(people, personID, core.Person.FullName, o.CustomerID, false)},
		{Name: "plant_id", Label: "Plant", Type: "select", Required: true,
			Options: options(plants, func(p core.Plant) int64 { return p.ID }, func(p core.Plant) string { return p.Name }, o.PlantID, false)},
		{Name: "quantity", Label: "Quantity", Type: "number", Value: quantity, Required: true},
		{Name: "order_status_id", Label: "Status", Type: "select", Required: true,
			Options: options(statuses, statusID, statusName, o.OrderStatusID, false)},
	}, nil
}

func (s *Server) choreFields(ctx context.Context, c core.Chore) ([]formField, error) {
	var (
		defs     []core.ChoreDefinition
		people   []core.Person
		statuses []core.OrderStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { defs, err = s.farm.ListChoreDefinitions(gctx); return err })
	g.Go(func() (err error) { people, err = s.farm.ListPeople(gctx); return err })
	g.Go(func() (err error) { statuses, err = s.farm.ListOrderStatuses(gctx); return err })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return []formField{
		{Name: "chore_id", Label: "Chore", Type: "select", Required: true,
			Options: options(defs, func(cd core.ChoreDefinition) int64 { return cd.ID },
				func(cd core.ChoreDefinition) string { return cd.Name }, c.ChoreDefinitionID, false)},
		{Name: "person_id", Label: "Person", Type: "select", Required: true,
			Options: options(people, personID, core.Person.FullName, c.PersonID, false)},
		{Name: "order_status_id", Label: "Status", Type: "select", Required: true,
			Options: options(statuses, statusID, statusName, c.OrderStatusID, false)},
	}, nil
}
