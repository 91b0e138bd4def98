package core

import (
	"strconv"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	Person struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}

	PlantPassport struct {
		ID                int64     `json:"id"`
		CountryOfOrigin   string    `json:"country_of_origin"`
		DateOfIssue       time.Time `json:"date_of_issue"`
		IssuingAuthority  string    `json:"issuing_authority"`
		CertificateNumber string    `json:"certificate_number"`
		Description       string    `json:"description,omitempty"`
	}

	Plant struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		LatinName  string `json:"latin_name"`
		Price      Money  `json:"price"`
		PassportID *int64 `json:"passport_id,omitempty"`
	}

	Country struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// City belongs to one Country. CountryName is filled by list/get queries.
	City struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		CountryID int64  `json:"country_id"`

		CountryName string `json:"country_name,omitempty"`
	}

	OrderStatus struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Order is a customer order for a quantity of one plant. The *Name fields
	// are filled by list/get queries that join the referenced rows.
	Order struct {
		ID            int64 `json:"id"`
		Quantity      int   `json:"quantity"`
		CustomerID    int64 `json:"customer_id"`
		PlantID       int64 `json:"plant_id"`
		OrderStatusID int64 `json:"order_status_id"`

		CustomerName string `json:"customer_name,omitempty"`
		PlantName    string `json:"plant_name,omitempty"`
		StatusName   string `json:"status_name,omitempty"`
	}

	ChoreDefinition struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	// Chore assigns a chore definition to a person with a progress status.
	Chore struct {
		ID                int64 `json:"id"`
		ChoreDefinitionID int64 `json:"chore_id"`
		OrderStatusID     int64 `json:"order_status_id"`
		PersonID          int64 `json:"person_id"`

		ChoreName  string `json:"chore_name,omitempty"`
		StatusName string `json:"status_name,omitempty"`
		PersonName string `json:"person_name,omitempty"`
	}

	Plot struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// LedgerEntry is a signed money record: positive amounts are income,
	// negative amounts are expenses. PlotID is nil for farm-wide entries.
	LedgerEntry struct {
		ID          int64     `json:"id"`
		Amount      Amount    `json:"amount"`
		PlotID      *int64    `json:"plot_id"`
		Description string    `json:"description,omitempty"`
		Date        time.Time `json:"date"`
	}
)

// Default order statuses seeded by migrations and by the memory store.
var DefaultOrderStatuses = []string{"Pending", "In progress", "Done"}

// FullName returns "First Last", used in drop-down lists.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return &ValidationError{Field: "first_name", Reason: "cannot be empty"}
	}
	if strings.TrimSpace(p.LastName) == "" {
		return &ValidationError{Field: "last_name", Reason: "cannot be empty"}
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return &ValidationError{Field: "email", Value: p.Email, Reason: "not an email address"}
	}
	return nil
}

func (p Plant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if len(p.Name) > 200 {
		return &ValidationError{Field: "name", Reason: "too long (max 200 characters)"}
	}
	if p.Price.Cents < 0 {
		return &ValidationError{Field: "price", Value: FormatCents(p.Price.Cents), Reason: "cannot be negative"}
	}
	return nil
}

func (pp PlantPassport) Validate() error {
	if strings.TrimSpace(pp.CertificateNumber) == "" {
		return &ValidationError{Field: "certificate_number", Reason: "cannot be empty"}
	}
	if pp.DateOfIssue.IsZero() {
		return &ValidationError{Field: "date_of_issue", Reason: "cannot be zero"}
	}
	return nil
}

func (c Country) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if len(c.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	}
	return nil
}

func (c City) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if len(c.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	}
	if c.CountryID <= 0 {
		return &ValidationError{Field: "country_id", Reason: "is required"}
	}
	return nil
}

func (o Order) Validate() error {
	if o.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if o.CustomerID <= 0 {
		return &ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if o.PlantID <= 0 {
		return &ValidationError{Field: "plant_id", Reason: "is required"}
	}
	if o.OrderStatusID <= 0 {
		return &ValidationError{Field: "order_status_id", Reason: "is required"}
	}
	return nil
}

func (c Chore) Validate() error {
	if c.ChoreDefinitionID <= 0 {
		return &ValidationError{Field: "chore_id", Reason: "is required"}
	}
	if c.OrderStatusID <= 0 {
		return &ValidationError{Field: "order_status_id", Reason: "is required"}
	}
	if c.PersonID <= 0 {
		return &ValidationError{Field: "person_id", Reason: "is required"}
	}
	return nil
}

func (cd ChoreDefinition) Validate() error {
	if strings.TrimSpace(cd.Name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	return nil
}

func (p Plot) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if len(p.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	}
	return nil
}

// Validate checks that the entry carries a parseable amount. An absent
// amount is allowed, matching rows imported without a price.
func (e LedgerEntry) Validate() error {
	if _, _, err := e.Amount.Cents(); err != nil {
		return err
	}
	if e.PlotID != nil && *e.PlotID <= 0 {
		return &ValidationError{Field: "plot_id", Value: strconv.FormatInt(*e.PlotID, 10), Reason: "must be positive"}
	}
	if len(e.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	return nil
}
