/*
Package factory provides JSON to Go contribution type conversion.

PURPOSE:
  Converts JSON contribution type definitions into dues.ContributionType
  values. Administrators configure obligations through the API or seed
  files; the factory validates the document and builds the recurrence
  definition the engine enumerates.

JSON SCHEMA:
  {
    "id": "iuran-bulanan",
    "name": "Iuran Bulanan",
    "wallet_id": "kas-rt",
    "amount": "50000",
    "period": "monthly",
    "start_date": "2025-01-01",
    "end_date": "2025-12-31",
    "recurring_day": 10,
    "due_date": null,
    "description": "Iuran kas RT",
    "is_active": true
  }

VALIDATION:
  Field rules run through go-playground/validator with JSON tag names, so
  errors name "recurring_day" instead of "RecurringDay". Rules the tags
  cannot express are checked after:
  - daily periods are rejected (the engine has no rules for them)
  - end_date must not precede start_date
  - a weekly recurring_day is an ISO weekday (1-7)
  - amount must not be negative

USAGE:
  f := factory.New()
  ct, err := f.Parse([]byte(jsonString))
  if err != nil {
      var verr *factory.ValidationError
      if errors.As(err, &verr) { ... verr.Fields ... }
  }

SEE ALSO:
  - dues/recurrence.go: RecurrenceDefinition
  - api/dto.go: request DTOs validated with the same validator
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/dues-engine/dues"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ContributionTypeJSON is the JSON representation of a contribution type.
type ContributionTypeJSON struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name" validate:"notblank,max=255"`
	WalletID     string          `json:"wallet_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Period       string          `json:"period" validate:"required,oneof=once daily weekly monthly yearly"`
	StartDate    string          `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string          `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RecurringDay *int            `json:"recurring_day,omitempty" validate:"omitempty,min=1,max=31"`
	Description  string          `json:"description,omitempty" validate:"max=1000"`
	IsActive     *bool           `json:"is_active,omitempty"` // default true
}

// =============================================================================
// ERRORS
// =============================================================================

// FieldError is one rejected field, keyed by its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a document.
type ValidationError struct {
	Fields []FieldError
	Err    error // sentinel for errors.Is
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ErrInvalidInput is the sentinel of request DTO validation failures.
var ErrInvalidInput = errors.New("invalid input")

// =============================================================================
// FACTORY
// =============================================================================

const notBlankTag = "notblank"

// Factory converts JSON contribution types to Go structs.
type Factory struct {
	validate   *validator.Validate
	translator ut.Translator

	// NewID fills in a missing id. Defaults to uuid.NewString.
	NewID func() string
	// Now stamps CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

// New creates a factory with English validation messages.
func New() *Factory {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})
	_ = v.RegisterTranslation(notBlankTag, trans,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string { return "this field cannot be blank" },
	)

	return &Factory{
		validate:   v,
		translator: trans,
		NewID:      uuid.NewString,
		Now:        time.Now,
	}
}

// Struct validates any tagged struct, reporting failures as a
// *ValidationError wrapping ErrInvalidInput.
func (f *Factory) Struct(v any) error {
	if fields := f.fieldErrors(v); len(fields) > 0 {
		return &ValidationError{Fields: fields, Err: ErrInvalidInput}
	}
	return nil
}

func (f *Factory) fieldErrors(v any) []FieldError {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Translate(f.translator)})
	}
	return fields
}

// Parse decodes and builds a contribution type from JSON.
func (f *Factory) Parse(data []byte) (dues.ContributionType, error) {
	var doc ContributionTypeJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return dues.ContributionType{}, fmt.Errorf("%w: %v", dues.ErrInvalidDefinition, err)
	}
	return f.Build(doc)
}

// Build validates doc and converts it. Errors wrap dues.ErrInvalidDefinition.
func (f *Factory) Build(doc ContributionTypeJSON) (dues.ContributionType, error) {
	fields := f.fieldErrors(doc)
	if len(fields) > 0 {
		return dues.ContributionType{}, &ValidationError{Fields: fields, Err: dues.ErrInvalidDefinition}
	}

	kind := dues.PeriodKind(doc.Period)
	start := parseOptionalDate(doc.StartDate)
	end := parseOptionalDate(doc.EndDate)
	due := parseOptionalDate(doc.DueDate)

	if kind == dues.KindDaily {
		fields = append(fields, FieldError{Field: "period", Message: "daily contributions are not supported"})
	}
	if doc.Amount.IsNegative() {
		fields = append(fields, FieldError{Field: "amount", Message: "amount must not be negative"})
	}
	if start != nil && end != nil && end.Before(*start) {
		fields = append(fields, FieldError{Field: "end_date", Message: "end_date must be on or after start_date"})
	}
	if kind == dues.KindWeekly && doc.RecurringDay != nil && *doc.RecurringDay > 7 {
		fields = append(fields, FieldError{Field: "recurring_day", Message: "weekly recurring_day must be 1 (Monday) to 7 (Sunday)"})
	}
	if len(fields) > 0 {
		return dues.ContributionType{}, &ValidationError{Fields: fields, Err: dues.ErrInvalidDefinition}
	}

	id := doc.ID
	if id == "" {
		id = f.NewID()
	}
	active := true
	if doc.IsActive != nil {
		active = *doc.IsActive
	}
	now := f.Now().UTC()

	return dues.ContributionType{
		ID:          dues.TypeID(id),
		Name:        strings.TrimSpace(doc.Name),
		WalletID:    dues.WalletID(doc.WalletID),
		Description: doc.Description,
		Active:      active,
		CreatedAt:   now,
		Definition: dues.RecurrenceDefinition{
			Kind:         kind,
			Amount:       doc.Amount,
			StartDate:    start,
			EndDate:      end,
			RecurringDay: doc.RecurringDay,
			DueDate:      due,
			CreatedAt:    dues.DateOf(now),
		},
	}, nil
}

// parseOptionalDate is only called on values the datetime tag accepted.
func parseOptionalDate(s string) *dues.Date {
	if s == "" {
		return nil
	}
	d, err := dues.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

// =============================================================================
// PRESETS
// =============================================================================

// MonthlyDuesJSON returns a monthly contribution type due on day.
func MonthlyDuesJSON(id, name, walletID string, amount int64, start string, day int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"wallet_id": %q,
		"amount": "%d",
		"period": "monthly",
		"start_date": %q,
		"recurring_day": %d
	}`, id, name, walletID, amount, start, day)
}

// WeeklyDuesJSON returns a weekly contribution type due on ISO weekday.
func WeeklyDuesJSON(id, name, walletID string, amount int64, start string, weekday int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"wallet_id": %q,
		"amount": "%d",
		"period": "weekly",
		"start_date": %q,
		"recurring_day": %d
	}`, id, name, walletID, amount, start, weekday)
}

// OneTimeJSON returns a once contribution type due on dueDate.
func OneTimeJSON(id, name, walletID string, amount int64, dueDate string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"wallet_id": %q,
		"amount": "%d",
		"period": "once",
		"due_date": %q
	}`, id, name, walletID, amount, dueDate)
}
