/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates a wallet, a roster, contribution
	types and a mix of paid and pending payments, all relative to today so
	the arrears report always has something to show.

AVAILABLE SCENARIOS:

	rt-monthly:     Monthly neighbourhood dues, members at different arrears
	arisan-weekly:  Weekly savings circle over the last eight ISO weeks
	donation-drive: One-time donation with a due date next month

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the wallet and the roster
 3. Create contribution types via factory presets
 4. Record paid periods in bulk, then a few pending submissions

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "rt-monthly"}

USAGE VIA CLI:

	dues-server seed rt-monthly

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler, shared helpers
  - factory/contribution_type.go: preset JSON definitions
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/dues-engine/dues"
	"github.com/warp/dues-engine/factory"
)

// ErrUnknownScenario is returned for a scenario ID not in Scenarios.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Scenarios lists the loadable demo data sets.
var Scenarios = []ScenarioDTO{
	{
		ID:          "rt-monthly",
		Name:        "Iuran RT Bulanan",
		Description: "Monthly dues since January with members in arrears, one pending submission",
	},
	{
		ID:          "arisan-weekly",
		Name:        "Arisan Mingguan",
		Description: "Weekly savings circle due every Friday over the last eight weeks",
	},
	{
		ID:          "donation-drive",
		Name:        "Sumbangan 17-an",
		Description: "One-time donation due next month, half the roster already paid",
	},
}

type scenarioLoader func(h *Handler, ctx context.Context, today dues.Date) error

var scenarioLoaders = map[string]scenarioLoader{
	"rt-monthly":     (*Handler).loadMonthlyScenario,
	"arisan-weekly":  (*Handler).loadWeeklyScenario,
	"donation-drive": (*Handler).loadDonationScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.CurrentScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range Scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.ApplyScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.fail(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	h.Logger.Info("database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ApplyScenario resets the store and loads scenario id.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.setCurrentScenario("")

	if err := load(h, ctx, h.today()); err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}

	h.setCurrentScenario(id)
	h.Logger.Info("scenario loaded", "scenario", id)
	return nil
}

// CurrentScenario returns the ID of the last loaded scenario.
func (h *Handler) CurrentScenario() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadMonthlyScenario: Iuran RT 50.000 due on the 10th since January, plus
// a cleaning fee. Members stop paying at different months.
func (h *Handler) loadMonthlyScenario(ctx context.Context, today dues.Date) error {
	if err := h.seedWallet(ctx, "kas-rt", "Kas RT 05", "Kas warga RT 05"); err != nil {
		return err
	}
	members := []dues.Subject{
		{ID: "m-ani", Code: "RT05-001", Name: "Ani Lestari", Active: true},
		{ID: "m-budi", Code: "RT05-002", Name: "Budi Santoso", Active: true},
		{ID: "m-citra", Code: "RT05-003", Name: "Citra Dewi", Active: true},
		{ID: "m-dedi", Code: "RT05-004", Name: "Dedi Kurniawan", Active: true},
		{ID: "m-eka", Code: "RT05-005", Name: "Eka Putri", Active: true},
		{ID: "m-fajar", Code: "RT05-006", Name: "Fajar Nugroho", Active: true},
		{ID: "m-gita", Code: "RT05-007", Name: "Gita Maharani", Active: true},
		{ID: "m-hadi", Code: "RT05-008", Name: "Hadi Wijaya", Active: false},
	}
	if err := h.seedMembers(ctx, members); err != nil {
		return err
	}

	start := dues.StartOfYear(today.Year()).String()
	if err := h.seedType(ctx, factory.MonthlyDuesJSON("iuran-rt", "Iuran RT Bulanan", "kas-rt", 50000, start, 10)); err != nil {
		return err
	}
	if err := h.seedType(ctx, factory.MonthlyDuesJSON("iuran-kebersihan", "Iuran Kebersihan", "kas-rt", 25000, start, 5)); err != nil {
		return err
	}

	// Periods behind the latest one each member has left unpaid.
	behind := map[dues.SubjectID]int{
		"m-ani": 0, "m-budi": 1, "m-citra": 2, "m-dedi": 0,
		"m-eka": 3, "m-fajar": 1, "m-gita": 99, "m-hadi": 4,
	}
	for _, typeID := range []dues.TypeID{"iuran-rt", "iuran-kebersihan"} {
		keys, err := h.periodKeys(ctx, typeID, today)
		if err != nil {
			return err
		}
		for _, m := range members {
			n := len(keys) - behind[m.ID]
			if n <= 0 {
				continue
			}
			if err := h.seedPaid(ctx, typeID, []dues.SubjectID{m.ID}, keys[:n], today, "cash"); err != nil {
				return err
			}
		}
	}

	// Budi transferred this month; the treasurer has not verified yet.
	keys, err := h.periodKeys(ctx, "iuran-rt", today)
	if err != nil {
		return err
	}
	return h.seedPending(ctx, "m-budi", "iuran-rt", keys[len(keys)-1], today, "transfer")
}

// loadWeeklyScenario: arisan of 20.000 due every Friday for eight weeks.
func (h *Handler) loadWeeklyScenario(ctx context.Context, today dues.Date) error {
	if err := h.seedWallet(ctx, "kas-arisan", "Kas Arisan", "Arisan ibu-ibu PKK"); err != nil {
		return err
	}
	members := []dues.Subject{
		{ID: "a-sri", Name: "Sri Wahyuni", Active: true},
		{ID: "a-tuti", Name: "Tuti Handayani", Active: true},
		{ID: "a-umi", Name: "Umi Kalsum", Active: true},
		{ID: "a-wati", Name: "Wati Susilo", Active: true},
		{ID: "a-yani", Name: "Yani Rahayu", Active: true},
	}
	if err := h.seedMembers(ctx, members); err != nil {
		return err
	}

	start := dues.StartOfISOWeek(today).AddDays(-7 * 7).String()
	if err := h.seedType(ctx, factory.WeeklyDuesJSON("arisan", "Arisan Mingguan", "kas-arisan", 20000, start, 5)); err != nil {
		return err
	}

	keys, err := h.periodKeys(ctx, "arisan", today)
	if err != nil {
		return err
	}
	for i, m := range members {
		n := len(keys) - i
		if n <= 0 {
			continue
		}
		if err := h.seedPaid(ctx, "arisan", []dues.SubjectID{m.ID}, keys[:n], today, "cash"); err != nil {
			return err
		}
	}
	return h.seedPending(ctx, "a-yani", "arisan", keys[len(keys)-1], today, "qris")
}

// loadDonationScenario: one-time 100.000 donation due in thirty days.
func (h *Handler) loadDonationScenario(ctx context.Context, today dues.Date) error {
	if err := h.seedWallet(ctx, "kas-sosial", "Kas Sosial", "Dana kegiatan 17 Agustus"); err != nil {
		return err
	}
	members := []dues.Subject{
		{ID: "d-agus", Name: "Agus Salim", Active: true},
		{ID: "d-bayu", Name: "Bayu Pratama", Active: true},
		{ID: "d-cahya", Name: "Cahya Ramadhan", Active: true},
		{ID: "d-dian", Name: "Dian Permata", Active: true},
		{ID: "d-endah", Name: "Endah Sari", Active: true},
		{ID: "d-fitri", Name: "Fitri Anggraini", Active: true},
	}
	if err := h.seedMembers(ctx, members); err != nil {
		return err
	}

	due := today.AddDays(30).String()
	if err := h.seedType(ctx, factory.OneTimeJSON("sumbangan-17an", "Sumbangan 17-an", "kas-sosial", 100000, due)); err != nil {
		return err
	}

	if err := h.seedPaid(ctx, "sumbangan-17an", []dues.SubjectID{"d-agus", "d-bayu", "d-cahya"}, nil, today, "transfer"); err != nil {
		return err
	}
	return h.seedPending(ctx, "d-dian", "sumbangan-17an", "", today, "transfer")
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedWallet(ctx context.Context, id dues.WalletID, name, description string) error {
	return h.Store.SaveWallet(ctx, dues.Wallet{
		ID:          id,
		Name:        name,
		Description: description,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	})
}

func (h *Handler) seedMembers(ctx context.Context, members []dues.Subject) error {
	now := time.Now().UTC()
	for _, m := range members {
		m.CreatedAt = now
		if err := h.Store.SaveSubject(ctx, m); err != nil {
			return fmt.Errorf("save member %s: %w", m.ID, err)
		}
	}
	return nil
}

func (h *Handler) seedType(ctx context.Context, doc string) error {
	ct, err := h.Factory.Parse([]byte(doc))
	if err != nil {
		return err
	}
	return h.Store.SaveType(ctx, ct)
}

func (h *Handler) periodKeys(ctx context.Context, typeID dues.TypeID, today dues.Date) ([]string, error) {
	periods, err := h.Ledger.TypePeriods(ctx, typeID, today)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("%s has no periods as of %s", typeID, today)
	}
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = p.Key
	}
	return keys, nil
}

func (h *Handler) seedPaid(ctx context.Context, typeID dues.TypeID, members []dues.SubjectID, keys []string, today dues.Date, method string) error {
	_, err := h.Ledger.BulkRecord(ctx, dues.BulkInput{
		TypeID:      typeID,
		SubjectIDs:  members,
		Periods:     keys,
		PaymentDate: today,
		Method:      method,
		RecordedBy:  "bendahara",
	})
	return err
}

func (h *Handler) seedPending(ctx context.Context, member dues.SubjectID, typeID dues.TypeID, key string, today dues.Date, method string) error {
	t, err := h.Store.GetType(ctx, typeID)
	if err != nil {
		return err
	}
	_, err = h.Ledger.Record(ctx, dues.RecordInput{
		SubjectID:     member,
		TypeID:        typeID,
		Amount:        t.Definition.Amount,
		PaymentDate:   today,
		PaymentPeriod: key,
		Method:        method,
		Notes:         "menunggu verifikasi",
	})
	return err
}
