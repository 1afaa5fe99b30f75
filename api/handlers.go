/*
handlers.go - HTTP API handlers for the dues engine

PURPOSE:
  Exposes the ledger and the reconciler via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to dues.Ledger.

ENDPOINTS:
  Members:
    GET    /api/members                          List members (?active=true)
    POST   /api/members                          Create member
    GET    /api/members/{id}                     Get member
    GET    /api/members/{id}/status              Periods of one type (?type_id, ?as_of)
    GET    /api/members/{id}/progress            Progress on every periodic type (?as_of)

  Wallets:
    GET    /api/wallets                          List wallets
    POST   /api/wallets                          Create wallet
    GET    /api/wallets/{id}                     Get wallet with balance

  Contribution types:
    GET    /api/contribution-types               List (?active=true)
    POST   /api/contribution-types               Create from JSON
    GET    /api/contribution-types/{id}          Get
    DELETE /api/contribution-types/{id}          Delete (only without payments)
    GET    /api/contribution-types/{id}/periods        (?as_of)
    GET    /api/contribution-types/{id}/aggregate      (?period, default current)
    GET    /api/contribution-types/{id}/arrears        (?as_of)
    GET    /api/contribution-types/{id}/matrix         (?year)
    GET    /api/contribution-types/{id}/unpaid-members (?period)

  Contributions:
    POST   /api/contributions                    Submit payment (pending)
    POST   /api/contributions/bulk               Record paid payments in bulk
    POST   /api/contributions/{id}/verify        Verify as paid or rejected
    DELETE /api/contributions/{id}               Delete payment

  Admin:
    POST   /api/admin/deactivate-expired         Switch off expired types

  Scenarios (scenarios.go):
    GET    /api/scenarios                        List demo scenarios
    GET    /api/scenarios/current                Last loaded scenario
    POST   /api/scenarios/load                   Reset and load a scenario
    POST   /api/scenarios/reset                  Reset database

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unsupported period kinds
  - 404: Resource not found
  - 409: Conflict (duplicate payment, already verified, type in use)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/dues-engine/dues"
	"github.com/warp/dues-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the handlers need: the ledger's TxStore plus a
// reset for demo scenarios.
type Store interface {
	dues.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Ledger  *dues.Ledger
	Factory *factory.Factory
	Logger  *slog.Logger

	// Today is the default as-of date. Defaults to dues.Today.
	Today func() dues.Date

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler over store.
func NewHandler(store Store, reconciler dues.Reconciler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   store,
		Ledger:  dues.NewLedger(store, reconciler),
		Factory: factory.New(),
		Logger:  logger,
		Today:   dues.Today,
	}
}

func (h *Handler) today() dues.Date {
	if h.Today == nil {
		return dues.Today()
	}
	return h.Today()
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "date": h.today().String()})
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns the roster.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.ListSubjects(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.fail(w, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMember adds a member to the roster.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !h.decode(w, r, &req) {
		return
	}

	m := dues.Subject{
		ID:        dues.SubjectID(req.ID),
		Code:      req.MemberCode,
		Name:      req.Name,
		Active:    req.Status != "inactive",
		CreatedAt: time.Now().UTC(),
	}
	if m.ID == "" {
		m.ID = dues.SubjectID(uuid.NewString())
	}

	if err := h.Ledger.CreateSubject(r.Context(), m); err != nil {
		h.fail(w, "Failed to create member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetSubject(r.Context(), dues.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Member not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*m))
}

// GetMemberStatus returns the reconciled periods of one member for one type.
func (h *Handler) GetMemberStatus(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "id")
	typeID := r.URL.Query().Get("type_id")
	if typeID == "" {
		writeError(w, http.StatusBadRequest, "type_id is required", nil)
		return
	}
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	st, err := h.Ledger.MemberStatus(r.Context(), dues.SubjectID(memberID), dues.TypeID(typeID), asOf)
	if err != nil {
		h.fail(w, "Failed to reconcile member", err)
		return
	}

	writeJSON(w, http.StatusOK, MemberStatusDTO{
		MemberID:    memberID,
		TypeID:      typeID,
		AsOf:        asOf.String(),
		Periods:     toPeriodDTOs(st.Periods),
		Summary:     toSummaryDTO(st.Summary),
		Outstanding: st.Outstanding,
	})
}

// GetMemberProgress reports progress on every active periodic type. Types
// the engine cannot enumerate are skipped and logged.
func (h *Handler) GetMemberProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID := dues.SubjectID(chi.URLParam(r, "id"))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.GetSubject(ctx, memberID); err != nil {
		h.fail(w, "Member not found", err)
		return
	}
	types, err := h.Store.ListTypes(ctx, true)
	if err != nil {
		h.fail(w, "Failed to list contribution types", err)
		return
	}

	out := []ProgressDTO{}
	for _, t := range types {
		if !t.Definition.Kind.Periodic() {
			continue
		}
		p, err := h.Ledger.MemberProgress(ctx, memberID, t.ID, asOf)
		if err != nil {
			h.Logger.Warn("skipping contribution type in progress", "type_id", t.ID, "error", err)
			continue
		}
		dto := ProgressDTO{
			TypeID:   string(t.ID),
			TypeName: t.Name,
			Period:   string(t.Definition.Kind),
			Periods:  toPeriodDTOs(p.Periods),
			Summary:  toSummaryDTO(p.Summary),
		}
		if p.NextDue != nil {
			next := toPeriodDTO(*p.NextDue)
			dto.NextDue = &next
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.Store.ListWallets(r.Context())
	if err != nil {
		h.fail(w, "Failed to list wallets", err)
		return
	}
	dtos := make([]WalletDTO, len(wallets))
	for i, wl := range wallets {
		dtos[i] = toWalletDTO(wl)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if !h.decode(w, r, &req) {
		return
	}
	wl := dues.Wallet{
		ID:          dues.WalletID(req.ID),
		Name:        req.Name,
		Description: req.Description,
		Balance:     req.Balance,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if wl.ID == "" {
		wl.ID = dues.WalletID(uuid.NewString())
	}
	if err := h.Ledger.CreateWallet(r.Context(), wl); err != nil {
		h.fail(w, "Failed to create wallet", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(wl))
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Store.GetWallet(r.Context(), dues.WalletID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Wallet not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wl))
}

// =============================================================================
// CONTRIBUTION TYPE HANDLERS
// =============================================================================

func (h *Handler) ListContributionTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListTypes(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.fail(w, "Failed to list contribution types", err)
		return
	}
	dtos := make([]ContributionTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = toContributionTypeDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContributionType builds a type with the factory. The wallet must
// exist.
func (h *Handler) CreateContributionType(w http.ResponseWriter, r *http.Request) {
	var doc factory.ContributionTypeJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	ct, err := h.Factory.Build(doc)
	if err != nil {
		h.fail(w, "Invalid contribution type", err)
		return
	}

	if _, err := h.Store.GetWallet(r.Context(), ct.WalletID); err != nil {
		if dues.IsNotFound(err) {
			writeError(w, http.StatusBadRequest, "Unknown wallet", err)
			return
		}
		h.fail(w, "Failed to load wallet", err)
		return
	}

	if err := h.Ledger.CreateType(r.Context(), ct); err != nil {
		h.fail(w, "Failed to save contribution type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContributionTypeDTO(ct))
}

func (h *Handler) GetContributionType(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetType(r.Context(), dues.TypeID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Contribution type not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionTypeDTO(*t))
}

func (h *Handler) DeleteContributionType(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteType(r.Context(), dues.TypeID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete contribution type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTypePeriods lists the expected periods of a type without payment data.
func (h *Handler) GetTypePeriods(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	periods, err := h.Ledger.TypePeriods(r.Context(), dues.TypeID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		h.fail(w, "Failed to enumerate periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTOs(periods))
}

// GetTypeAggregate reports one period across the active roster. Without a
// period parameter the period containing today is used.
func (h *Handler) GetTypeAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typeID := dues.TypeID(chi.URLParam(r, "id"))

	key := r.URL.Query().Get("period")
	if key == "" {
		current, err := h.Ledger.CurrentPeriod(ctx, typeID, h.today())
		if err != nil {
			h.fail(w, "Failed to resolve current period", err)
			return
		}
		key = current.Key
	}

	agg, err := h.Ledger.PeriodAggregate(ctx, typeID, key)
	if err != nil {
		h.fail(w, "Failed to aggregate period", err)
		return
	}

	writeJSON(w, http.StatusOK, AggregateDTO{
		TypeID:      string(typeID),
		Period:      toPeriodDTO(agg.Period),
		ActiveCount: agg.ActiveCount,
		PaidCount:   agg.PaidCount,
		UnpaidCount: agg.UnpaidCount,
		Collected:   agg.Collected,
		Expected:    agg.Expected,
		Percentage:  agg.Percentage,
		Paid:        subjectIDs(agg.Paid),
		Unpaid:      subjectIDs(agg.Unpaid),
	})
}

func (h *Handler) GetTypeArrears(w http.ResponseWriter, r *http.Request) {
	typeID := dues.TypeID(chi.URLParam(r, "id"))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	report, err := h.Ledger.ArrearsReport(r.Context(), typeID, asOf)
	if err != nil {
		h.fail(w, "Failed to build arrears report", err)
		return
	}

	dto := ArrearsDTO{
		TypeID:          string(typeID),
		AsOf:            asOf.String(),
		Current:         toPeriodDTO(report.Current),
		Total:           report.Total,
		PaidCount:       report.PaidCount,
		ArrearsCount:    report.ArrearsCount,
		UnpaidCount:     report.UnpaidCount,
		PaidWithArrears: report.PaidWithArrears,
		Paid:            subjectIDs(report.Paid),
		Arrears:         subjectIDs(report.Arrears),
		Unpaid:          subjectIDs(report.Unpaid),
	}
	if report.Previous != nil {
		prev := toPeriodDTO(*report.Previous)
		dto.Previous = &prev
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) GetTypeMatrix(w http.ResponseWriter, r *http.Request) {
	typeID := dues.TypeID(chi.URLParam(r, "id"))

	year := h.today().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	m, err := h.Ledger.TypeMatrix(r.Context(), typeID, year)
	if err != nil {
		h.fail(w, "Failed to build matrix", err)
		return
	}

	dto := MatrixDTO{
		TypeID:  string(typeID),
		Year:    m.Year,
		Columns: make([]MatrixColumnDTO, len(m.Columns)),
		Rows:    make([]MatrixRowDTO, len(m.Rows)),
	}
	for i, c := range m.Columns {
		dto.Columns[i] = MatrixColumnDTO{
			Key:        c.Period.Key,
			Label:      c.Period.Label,
			ShortLabel: c.Period.ShortLabel,
			Paid:       c.Paid,
			Pending:    c.Pending,
			Unpaid:     c.Unpaid,
		}
	}
	for i, row := range m.Rows {
		cells := make([]string, len(row.Cells))
		labels := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = string(c)
			labels[j] = c.Label()
		}
		dto.Rows[i] = MatrixRowDTO{
			Member:  toMemberDTO(row.Subject),
			Cells:   cells,
			Labels:  labels,
			Summary: toSummaryDTO(row.Summary),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) GetUnpaidMembers(w http.ResponseWriter, r *http.Request) {
	typeID := dues.TypeID(chi.URLParam(r, "id"))
	members, err := h.Ledger.UnpaidSubjects(r.Context(), typeID, r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, "Failed to list unpaid members", err)
		return
	}
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CONTRIBUTION HANDLERS
// =============================================================================

// RecordContribution submits a pending payment.
func (h *Handler) RecordContribution(w http.ResponseWriter, r *http.Request) {
	var req RecordContributionRequest
	if !h.decode(w, r, &req) {
		return
	}
	payDate, ok := h.optionalDate(w, req.PaymentDate)
	if !ok {
		return
	}

	rec, err := h.Ledger.Record(r.Context(), dues.RecordInput{
		SubjectID:     dues.SubjectID(req.MemberID),
		TypeID:        dues.TypeID(req.TypeID),
		Amount:        req.Amount,
		PaymentDate:   payDate,
		PaymentPeriod: req.PaymentPeriod,
		Method:        req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, "Failed to record contribution", err)
		return
	}

	h.Logger.Info("contribution recorded",
		"id", rec.ID, "member_id", rec.SubjectID, "type_id", rec.TypeID, "period", rec.PaymentPeriod)
	writeJSON(w, http.StatusCreated, toContributionDTO(rec))
}

// BulkRecordContributions records paid payments for members x periods.
func (h *Handler) BulkRecordContributions(w http.ResponseWriter, r *http.Request) {
	var req BulkContributionRequest
	if !h.decode(w, r, &req) {
		return
	}
	payDate, ok := h.optionalDate(w, req.PaymentDate)
	if !ok {
		return
	}

	ids := make([]dues.SubjectID, len(req.MemberIDs))
	for i, id := range req.MemberIDs {
		ids[i] = dues.SubjectID(id)
	}

	res, err := h.Ledger.BulkRecord(r.Context(), dues.BulkInput{
		TypeID:      dues.TypeID(req.TypeID),
		SubjectIDs:  ids,
		Periods:     req.Periods,
		PaymentDate: payDate,
		Method:      req.PaymentMethod,
		Notes:       req.Notes,
		RecordedBy:  req.RecordedBy,
	})
	if err != nil {
		h.fail(w, "Failed to record contributions", err)
		return
	}

	skipped := make([]BulkEntryDTO, len(res.Skipped))
	for i, s := range res.Skipped {
		skipped[i] = BulkEntryDTO{MemberID: string(s.SubjectID), Period: s.Period}
	}

	h.Logger.Info("bulk contributions recorded",
		"type_id", req.TypeID, "created", len(res.Created), "promoted", len(res.Promoted),
		"skipped", len(res.Skipped), "total", res.Total.String())
	writeJSON(w, http.StatusCreated, BulkResultDTO{
		Created:  toContributionDTOs(res.Created),
		Promoted: toContributionDTOs(res.Promoted),
		Skipped:  skipped,
		Total:    res.Total,
	})
}

func (h *Handler) VerifyContribution(w http.ResponseWriter, r *http.Request) {
	var req VerifyContributionRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Ledger.Verify(r.Context(), dues.RecordID(chi.URLParam(r, "id")),
		dues.PaymentStatus(req.Status), req.VerifiedBy)
	if err != nil {
		h.fail(w, "Failed to verify contribution", err)
		return
	}

	h.Logger.Info("contribution verified", "id", rec.ID, "status", rec.Status, "verified_by", rec.VerifiedBy)
	writeJSON(w, http.StatusOK, toContributionDTO(rec))
}

func (h *Handler) DeleteContribution(w http.ResponseWriter, r *http.Request) {
	id := dues.RecordID(chi.URLParam(r, "id"))
	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete contribution", err)
		return
	}
	h.Logger.Info("contribution deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// DeactivateExpired runs the same job as the scheduler, immediately.
func (h *Handler) DeactivateExpired(w http.ResponseWriter, r *http.Request) {
	expired, err := h.Ledger.DeactivateExpired(r.Context(), h.today())
	if err != nil {
		h.fail(w, "Failed to deactivate expired contribution types", err)
		return
	}

	dtos := make([]ContributionTypeDTO, len(expired))
	for i, t := range expired {
		dtos[i] = toContributionTypeDTO(t)
	}
	writeJSON(w, http.StatusOK, DeactivateResultDTO{Count: len(dtos), Deactivated: dtos})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates its tags. It writes the
// error response itself and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.Factory.Struct(dst); err != nil {
		h.fail(w, "Invalid request", err)
		return false
	}
	return true
}

func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (dues.Date, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.today(), true
	}
	d, err := dues.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return dues.Date{}, false
	}
	return d, true
}

func (h *Handler) optionalDate(w http.ResponseWriter, raw string) (dues.Date, bool) {
	if raw == "" {
		return h.today(), true
	}
	d, err := dues.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return dues.Date{}, false
	}
	return d, true
}

// fail maps domain errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	var verr *factory.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: "validation_failed", Details: verr.Fields})
	case dues.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case dues.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case dues.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
