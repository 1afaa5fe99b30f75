/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the dues domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Roster:        MemberDTO, CreateMemberRequest
  Wallets:       WalletDTO, CreateWalletRequest
  Types:         ContributionTypeDTO (requests use factory.ContributionTypeJSON)
  Periods:       PeriodDTO, SummaryDTO, MemberStatusDTO, ProgressDTO
  Roster views:  AggregateDTO, ArrearsDTO, MatrixDTO
  Payments:      ContributionDTO, RecordContributionRequest,
                 BulkContributionRequest, VerifyContributionRequest,
                 BulkResultDTO
  Scenarios:     ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry `validate` tags checked by factory.Factory.Struct,
  so error details use the JSON field names.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/contribution_type.go: ContributionTypeJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/dues-engine/dues"
)

// =============================================================================
// ROSTER & WALLETS
// =============================================================================

// MemberDTO represents a roster member in API responses.
type MemberDTO struct {
	ID         string `json:"id"`
	MemberCode string `json:"member_code,omitempty"`
	Name       string `json:"name"`
	Status     string `json:"status"` // active | inactive
	CreatedAt  string `json:"created_at"`
}

// CreateMemberRequest is the request body for creating a member.
type CreateMemberRequest struct {
	ID         string `json:"id,omitempty"`
	MemberCode string `json:"member_code,omitempty" validate:"max=50"`
	Name       string `json:"name" validate:"notblank,max=255"`
	Status     string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

type WalletDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   string          `json:"created_at"`
}

type CreateWalletRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name" validate:"notblank,max=255"`
	Description string          `json:"description,omitempty" validate:"max=1000"`
	Balance     decimal.Decimal `json:"balance"`
}

// =============================================================================
// CONTRIBUTION TYPES
// =============================================================================

type ContributionTypeDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	WalletID     string          `json:"wallet_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Period       string          `json:"period"`
	StartDate    *string         `json:"start_date"`
	EndDate      *string         `json:"end_date"`
	DueDate      *string         `json:"due_date"`
	RecurringDay *int            `json:"recurring_day"`
	Description  string          `json:"description,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    string          `json:"created_at"`
}

// =============================================================================
// PERIODS
// =============================================================================

// PeriodDTO is one reconciled period.
type PeriodDTO struct {
	Key         string           `json:"key"`
	Label       string           `json:"label"`
	ShortLabel  string           `json:"short_label"`
	DueDate     *string          `json:"due_date"`
	Start       *string          `json:"start,omitempty"`
	End         *string          `json:"end,omitempty"`
	Status      string           `json:"status"`       // paid | pending | unpaid
	StatusLabel string           `json:"status_label"` // Lunas | Proses | -
	Record      *ContributionDTO `json:"record,omitempty"`
}

type SummaryDTO struct {
	Total      int             `json:"total"`
	Paid       int             `json:"paid"`
	Pending    int             `json:"pending"`
	Unpaid     int             `json:"unpaid"`
	Percentage decimal.Decimal `json:"percentage"`
}

type MemberStatusDTO struct {
	MemberID    string          `json:"member_id"`
	TypeID      string          `json:"contribution_type_id"`
	AsOf        string          `json:"as_of"`
	Periods     []PeriodDTO     `json:"periods"`
	Summary     SummaryDTO      `json:"summary"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ProgressDTO is the progress of one member on one periodic type.
type ProgressDTO struct {
	TypeID   string      `json:"contribution_type_id"`
	TypeName string      `json:"contribution_type_name"`
	Period   string      `json:"period"`
	Periods  []PeriodDTO `json:"periods"`
	Summary  SummaryDTO  `json:"summary"`
	NextDue  *PeriodDTO  `json:"next_due"`
}

// =============================================================================
// ROSTER VIEWS
// =============================================================================

type AggregateDTO struct {
	TypeID      string          `json:"contribution_type_id"`
	Period      PeriodDTO       `json:"period"`
	ActiveCount int             `json:"active_members"`
	PaidCount   int             `json:"paid_count"`
	UnpaidCount int             `json:"unpaid_count"`
	Collected   decimal.Decimal `json:"collected"`
	Expected    decimal.Decimal `json:"expected"`
	Percentage  decimal.Decimal `json:"percentage"`
	Paid        []string        `json:"paid_member_ids"`
	Unpaid      []string        `json:"unpaid_member_ids"`
}

type ArrearsDTO struct {
	TypeID          string     `json:"contribution_type_id"`
	AsOf            string     `json:"as_of"`
	Current         PeriodDTO  `json:"current_period"`
	Previous        *PeriodDTO `json:"previous_period"`
	Total           int        `json:"total_members"`
	PaidCount       int        `json:"paid_count"`
	ArrearsCount    int        `json:"arrears_count"`
	UnpaidCount     int        `json:"unpaid_count"`
	PaidWithArrears int        `json:"paid_with_arrears"`
	Paid            []string   `json:"paid_member_ids"`
	Arrears         []string   `json:"arrears_member_ids"`
	Unpaid          []string   `json:"unpaid_member_ids"`
}

type MatrixColumnDTO struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	ShortLabel string `json:"short_label"`
	Paid       int    `json:"paid"`
	Pending    int    `json:"pending"`
	Unpaid     int    `json:"unpaid"`
}

type MatrixRowDTO struct {
	Member  MemberDTO  `json:"member"`
	Cells   []string   `json:"cells"`  // status per column
	Labels  []string   `json:"labels"` // Lunas | Proses | - per column
	Summary SummaryDTO `json:"summary"`
}

type MatrixDTO struct {
	TypeID  string            `json:"contribution_type_id"`
	Year    int               `json:"year"`
	Columns []MatrixColumnDTO `json:"columns"`
	Rows    []MatrixRowDTO    `json:"rows"`
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

// ContributionDTO is one payment record.
type ContributionDTO struct {
	ID            string          `json:"id"`
	MemberID      string          `json:"member_id"`
	TypeID        string          `json:"contribution_type_id"`
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	PaymentPeriod string          `json:"payment_period,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	VerifiedAt    *string         `json:"verified_at,omitempty"`
	VerifiedBy    string          `json:"verified_by,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type RecordContributionRequest struct {
	MemberID      string          `json:"member_id" validate:"required"`
	TypeID        string          `json:"contribution_type_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentPeriod string          `json:"payment_period,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty" validate:"max=50"`
	Notes         string          `json:"notes,omitempty" validate:"max=1000"`
}

type BulkContributionRequest struct {
	TypeID        string   `json:"contribution_type_id" validate:"required"`
	MemberIDs     []string `json:"member_ids" validate:"required,min=1,dive,required"`
	Periods       []string `json:"periods"`
	PaymentDate   string   `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod string   `json:"payment_method,omitempty" validate:"max=50"`
	Notes         string   `json:"notes,omitempty" validate:"max=1000"`
	RecordedBy    string   `json:"recorded_by,omitempty"`
}

type VerifyContributionRequest struct {
	Status     string `json:"status" validate:"required,oneof=paid rejected"`
	VerifiedBy string `json:"verified_by,omitempty"`
}

type BulkEntryDTO struct {
	MemberID string `json:"member_id"`
	Period   string `json:"period,omitempty"`
}

type BulkResultDTO struct {
	Created  []ContributionDTO `json:"created"`
	Promoted []ContributionDTO `json:"promoted"`
	Skipped  []BulkEntryDTO    `json:"skipped"`
	Total    decimal.Decimal   `json:"total_amount"`
}

type DeactivateResultDTO struct {
	Count       int                   `json:"count"`
	Deactivated []ContributionTypeDTO `json:"deactivated"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func datePtrString(d *dues.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func dateString(d dues.Date) *string {
	if d.IsZero() {
		return nil
	}
	s := d.String()
	return &s
}

func memberStatus(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func toMemberDTO(s dues.Subject) MemberDTO {
	return MemberDTO{
		ID:         string(s.ID),
		MemberCode: s.Code,
		Name:       s.Name,
		Status:     memberStatus(s.Active),
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

func toWalletDTO(w dues.Wallet) WalletDTO {
	return WalletDTO{
		ID:          string(w.ID),
		Name:        w.Name,
		Description: w.Description,
		Balance:     w.Balance,
		IsActive:    w.Active,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
	}
}

func toContributionTypeDTO(t dues.ContributionType) ContributionTypeDTO {
	def := t.Definition
	return ContributionTypeDTO{
		ID:           string(t.ID),
		Name:         t.Name,
		WalletID:     string(t.WalletID),
		Amount:       def.Amount,
		Period:       string(def.Kind),
		StartDate:    datePtrString(def.StartDate),
		EndDate:      datePtrString(def.EndDate),
		DueDate:      datePtrString(def.DueDate),
		RecurringDay: def.RecurringDay,
		Description:  t.Description,
		IsActive:     t.Active,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func toContributionDTO(rec dues.PaymentRecord) ContributionDTO {
	dto := ContributionDTO{
		ID:            string(rec.ID),
		MemberID:      string(rec.SubjectID),
		TypeID:        string(rec.TypeID),
		WalletID:      string(rec.WalletID),
		Amount:        rec.Amount,
		PaymentDate:   rec.PaymentDate.String(),
		PaymentPeriod: rec.PaymentPeriod,
		PaymentMethod: rec.Method,
		Status:        string(rec.Status),
		Notes:         rec.Notes,
		VerifiedBy:    rec.VerifiedBy,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.VerifiedAt != nil {
		s := rec.VerifiedAt.Format(time.RFC3339)
		dto.VerifiedAt = &s
	}
	return dto
}

func toContributionDTOs(recs []dues.PaymentRecord) []ContributionDTO {
	out := make([]ContributionDTO, len(recs))
	for i, rec := range recs {
		out[i] = toContributionDTO(rec)
	}
	return out
}

func toPeriodDTO(p dues.PeriodDescriptor) PeriodDTO {
	dto := PeriodDTO{
		Key:         p.Key,
		Label:       p.Label,
		ShortLabel:  p.ShortLabel,
		DueDate:     datePtrString(p.DueDate),
		Start:       dateString(p.Start),
		End:         dateString(p.End),
		Status:      string(p.Status),
		StatusLabel: p.Status.Label(),
	}
	if p.Record != nil {
		rec := toContributionDTO(*p.Record)
		dto.Record = &rec
	}
	return dto
}

func toPeriodDTOs(periods []dues.PeriodDescriptor) []PeriodDTO {
	out := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		out[i] = toPeriodDTO(p)
	}
	return out
}

func toSummaryDTO(s dues.Summary) SummaryDTO {
	return SummaryDTO{
		Total:      s.Total,
		Paid:       s.Paid,
		Pending:    s.Pending,
		Unpaid:     s.Unpaid,
		Percentage: s.Percentage,
	}
}

func subjectIDs(ids []dues.SubjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
