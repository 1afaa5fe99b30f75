/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Contribution type creation and validation errors
- Payment submission, verification and wallet credit
- Bulk recording idempotence and rollback
- Roster views (aggregate, arrears, matrix, unpaid members)
- Error status mapping (400 / 404 / 409)
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/dues-engine/dues"
	"github.com/warp/dues-engine/factory"
	"github.com/warp/dues-engine/store/sqlite"
)

var testToday = dues.NewDate(2025, time.March, 15)

type testServer struct {
	h      *Handler
	store  *sqlite.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, dues.NewReconciler(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Today = func() dues.Date { return testToday }
	return &testServer{h: h, store: store, router: NewRouter(h, nil)}
}

// seedRoster creates wallet "kas", monthly type "iuran" (50000 on the 10th
// since January 2025) and three active members.
func (s *testServer) seedRoster(t *testing.T) {
	t.Helper()
	s.mustCall(t, http.MethodPost, "/api/wallets", `{"id":"kas","name":"Kas RT"}`, http.StatusCreated)
	for _, m := range []string{"ani", "budi", "citra"} {
		s.mustCall(t, http.MethodPost, "/api/members", `{"id":"`+m+`","name":"`+strings.ToUpper(m[:1])+m[1:]+`"}`, http.StatusCreated)
	}
	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		factory.MonthlyDuesJSON("iuran", "Iuran Bulanan", "kas", 50000, "2025-01-01", 10), http.StatusCreated)
}

func (s *testServer) call(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) mustCall(t *testing.T, method, path, body string, want int) *httptest.ResponseRecorder {
	t.Helper()
	rec := s.call(t, method, path, body)
	require.Equal(t, want, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// CONTRIBUTION TYPES
// =============================================================================

func TestCreateContributionType(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	rec := s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran", "", http.StatusOK)
	got := decode[ContributionTypeDTO](t, rec)

	assert.Equal(t, "monthly", got.Period)
	assert.Equal(t, "kas", got.WalletID)
	assert.Equal(t, "50000", got.Amount.String())
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2025-01-01", *got.StartDate)
	assert.True(t, got.IsActive)
}

func TestCreateContributionType_Rejections(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	// GIVEN: A daily type
	// WHEN: Creating it
	// THEN: 400 with field details
	rec := s.mustCall(t, http.MethodPost, "/api/contribution-types",
		`{"name":"Harian","wallet_id":"kas","amount":1000,"period":"daily"}`, http.StatusBadRequest)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Contains(t, rec.Body.String(), `"period"`)

	// Unknown wallet
	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		factory.OneTimeJSON("x", "Sumbangan", "ghost", 1000, "2025-05-01"), http.StatusBadRequest)

	// Malformed body
	s.mustCall(t, http.MethodPost, "/api/contribution-types", `{"name":`, http.StatusBadRequest)
}

func TestCreate_DuplicateIDConflicts(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	// GIVEN: Two paid January records crediting wallet "kas"
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["ani","budi"],"periods":["2025-01"]}`, http.StatusCreated)

	// WHEN: Re-posting the wallet, the type and a member under existing IDs
	// THEN: Each is refused and nothing changes
	s.mustCall(t, http.MethodPost, "/api/wallets", `{"id":"kas","name":"Kas RT"}`, http.StatusConflict)
	wallet := decode[WalletDTO](t, s.mustCall(t, http.MethodGet, "/api/wallets/kas", "", http.StatusOK))
	assert.Equal(t, "100000", wallet.Balance.String())

	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		`{"id":"iuran","name":"Iuran Tahunan","wallet_id":"kas","amount":600000,"period":"yearly"}`, http.StatusConflict)
	ct := decode[ContributionTypeDTO](t, s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran", "", http.StatusOK))
	assert.Equal(t, "monthly", ct.Period)

	status := decode[MemberStatusDTO](t, s.mustCall(t, http.MethodGet, "/api/members/ani/status?type_id=iuran", "", http.StatusOK))
	assert.NotEmpty(t, status.Periods)

	s.mustCall(t, http.MethodPost, "/api/members", `{"id":"ani","name":"Ani Lain","status":"inactive"}`, http.StatusConflict)
	member := decode[MemberDTO](t, s.mustCall(t, http.MethodGet, "/api/members/ani", "", http.StatusOK))
	assert.Equal(t, "Ani", member.Name)
}

func TestDeleteContributionType(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		factory.OneTimeJSON("kosong", "Sumbangan", "kas", 1000, "2025-05-01"), http.StatusCreated)
	s.mustCall(t, http.MethodDelete, "/api/contribution-types/kosong", "", http.StatusNoContent)
	s.mustCall(t, http.MethodGet, "/api/contribution-types/kosong", "", http.StatusNotFound)

	// A type with payments stays
	s.mustCall(t, http.MethodPost, "/api/contributions",
		`{"member_id":"ani","contribution_type_id":"iuran","amount":50000,"payment_period":"2025-01"}`, http.StatusCreated)
	s.mustCall(t, http.MethodDelete, "/api/contribution-types/iuran", "", http.StatusConflict)
}

func TestGetTypePeriods(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	rec := s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/periods", "", http.StatusOK)
	periods := decode[[]PeriodDTO](t, rec)

	require.Len(t, periods, 3)
	assert.Equal(t, "2025-01", periods[0].Key)
	assert.Equal(t, "Maret 2025", periods[2].Label)
	require.NotNil(t, periods[2].DueDate)
	assert.Equal(t, "2025-03-10", *periods[2].DueDate)
	assert.Equal(t, "unpaid", periods[2].Status)

	s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/periods?as_of=15-03-2025", "", http.StatusBadRequest)
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func TestRecordAndVerifyContribution(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	// GIVEN: A submitted payment for January
	rec := s.mustCall(t, http.MethodPost, "/api/contributions",
		`{"member_id":"ani","contribution_type_id":"iuran","amount":50000,"payment_period":"2025-01","payment_method":"transfer"}`,
		http.StatusCreated)
	created := decode[ContributionDTO](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "2025-03-15", created.PaymentDate)
	assert.Equal(t, "kas", created.WalletID)

	// WHEN: The treasurer verifies it
	rec = s.mustCall(t, http.MethodPost, "/api/contributions/"+created.ID+"/verify",
		`{"status":"paid","verified_by":"bendahara"}`, http.StatusOK)
	verified := decode[ContributionDTO](t, rec)

	// THEN: It is paid and the wallet is credited
	assert.Equal(t, "paid", verified.Status)
	assert.Equal(t, "bendahara", verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)

	wallet := decode[WalletDTO](t, s.mustCall(t, http.MethodGet, "/api/wallets/kas", "", http.StatusOK))
	assert.Equal(t, "50000", wallet.Balance.String())

	// Verifying again conflicts
	s.mustCall(t, http.MethodPost, "/api/contributions/"+created.ID+"/verify", `{"status":"paid"}`, http.StatusConflict)

	// Deleting debits the wallet
	s.mustCall(t, http.MethodDelete, "/api/contributions/"+created.ID, "", http.StatusNoContent)
	wallet = decode[WalletDTO](t, s.mustCall(t, http.MethodGet, "/api/wallets/kas", "", http.StatusOK))
	assert.True(t, wallet.Balance.IsZero())
}

func TestRecordContribution_Errors(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	body := `{"member_id":"ani","contribution_type_id":"iuran","amount":50000,"payment_period":"2025-02"}`
	s.mustCall(t, http.MethodPost, "/api/contributions", body, http.StatusCreated)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate period", body, http.StatusConflict},
		{"missing period", `{"member_id":"ani","contribution_type_id":"iuran","amount":50000}`, http.StatusBadRequest},
		{"invalid period key", `{"member_id":"ani","contribution_type_id":"iuran","amount":50000,"payment_period":"Feb"}`, http.StatusBadRequest},
		{"unknown member", `{"member_id":"ghost","contribution_type_id":"iuran","amount":50000,"payment_period":"2025-02"}`, http.StatusNotFound},
		{"missing member id", `{"contribution_type_id":"iuran","amount":50000,"payment_period":"2025-02"}`, http.StatusBadRequest},
		{"negative amount", `{"member_id":"budi","contribution_type_id":"iuran","amount":-1,"payment_period":"2025-02"}`, http.StatusBadRequest},
		{"bad payment date", `{"member_id":"budi","contribution_type_id":"iuran","amount":1,"payment_period":"2025-02","payment_date":"2025/02/01"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.mustCall(t, http.MethodPost, "/api/contributions", tt.body, tt.want)
		})
	}
}

func TestVerifyContribution_InvalidStatus(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	created := decode[ContributionDTO](t, s.mustCall(t, http.MethodPost, "/api/contributions",
		`{"member_id":"ani","contribution_type_id":"iuran","amount":50000,"payment_period":"2025-01"}`, http.StatusCreated))

	rec := s.mustCall(t, http.MethodPost, "/api/contributions/"+created.ID+"/verify", `{"status":"unpaid"}`, http.StatusBadRequest)
	assert.Equal(t, "validation_failed", decode[ErrorResponse](t, rec).Code)

	s.mustCall(t, http.MethodPost, "/api/contributions/missing/verify", `{"status":"paid"}`, http.StatusNotFound)
}

func TestBulkRecordContributions(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	body := `{"contribution_type_id":"iuran","member_ids":["ani","budi"],"periods":["2025-02","2025-03"],"recorded_by":"bendahara"}`

	// WHEN: Recording twice
	first := decode[BulkResultDTO](t, s.mustCall(t, http.MethodPost, "/api/contributions/bulk", body, http.StatusCreated))
	second := decode[BulkResultDTO](t, s.mustCall(t, http.MethodPost, "/api/contributions/bulk", body, http.StatusCreated))

	// THEN: The second run only skips
	assert.Len(t, first.Created, 4)
	assert.Equal(t, "200000", first.Total.String())
	assert.Empty(t, second.Created)
	assert.Len(t, second.Skipped, 4)
	assert.True(t, second.Total.IsZero())

	wallet := decode[WalletDTO](t, s.mustCall(t, http.MethodGet, "/api/wallets/kas", "", http.StatusOK))
	assert.Equal(t, "200000", wallet.Balance.String())
}

func TestBulkRecordContributions_RollsBack(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)

	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["ani","ghost"],"periods":["2025-01"]}`, http.StatusNotFound)

	recs, err := s.store.ListPayments(context.Background(), dues.PaymentFilter{TypeID: "iuran"})
	require.NoError(t, err)
	assert.Empty(t, recs)

	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":[],"periods":["2025-01"]}`, http.StatusBadRequest)

	// A monthly type needs at least one period
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["ani"],"periods":[]}`, http.StatusBadRequest)
}

// =============================================================================
// MEMBER VIEWS
// =============================================================================

func TestGetMemberStatus(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["ani"],"periods":["2025-01"]}`, http.StatusCreated)
	s.mustCall(t, http.MethodPost, "/api/contributions",
		`{"member_id":"ani","contribution_type_id":"iuran","amount":50000,"payment_period":"2025-02"}`, http.StatusCreated)

	rec := s.mustCall(t, http.MethodGet, "/api/members/ani/status?type_id=iuran", "", http.StatusOK)
	st := decode[MemberStatusDTO](t, rec)

	require.Len(t, st.Periods, 3)
	assert.Equal(t, "paid", st.Periods[0].Status)
	assert.Equal(t, "Lunas", st.Periods[0].StatusLabel)
	assert.Equal(t, "pending", st.Periods[1].Status)
	assert.Equal(t, "unpaid", st.Periods[2].Status)
	assert.Equal(t, 1, st.Summary.Paid)
	assert.Equal(t, 1, st.Summary.Pending)
	assert.Equal(t, "50000", st.Outstanding.String())
	assert.Equal(t, "2025-03-15", st.AsOf)

	s.mustCall(t, http.MethodGet, "/api/members/ani/status", "", http.StatusBadRequest)
	s.mustCall(t, http.MethodGet, "/api/members/ani/status?type_id=ghost", "", http.StatusNotFound)
}

func TestGetMemberProgress(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		factory.OneTimeJSON("sumbangan", "Sumbangan", "kas", 100000, "2025-04-01"), http.StatusCreated)
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["budi"],"periods":["2025-01"]}`, http.StatusCreated)

	rec := s.mustCall(t, http.MethodGet, "/api/members/budi/progress", "", http.StatusOK)
	progress := decode[[]ProgressDTO](t, rec)

	// Only the periodic type is listed
	require.Len(t, progress, 1)
	assert.Equal(t, "iuran", progress[0].TypeID)
	assert.Equal(t, 1, progress[0].Summary.Paid)
	require.NotNil(t, progress[0].NextDue)
	assert.Equal(t, "2025-02", progress[0].NextDue.Key)

	s.mustCall(t, http.MethodGet, "/api/members/ghost/progress", "", http.StatusNotFound)
}

// =============================================================================
// ROSTER VIEWS
// =============================================================================

func TestGetTypeAggregate_DefaultsToCurrentPeriod(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["ani","budi"],"periods":["2025-03"]}`, http.StatusCreated)

	agg := decode[AggregateDTO](t, s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/aggregate", "", http.StatusOK))

	assert.Equal(t, "2025-03", agg.Period.Key)
	assert.Equal(t, 3, agg.ActiveCount)
	assert.Equal(t, 2, agg.PaidCount)
	assert.Equal(t, 1, agg.UnpaidCount)
	assert.Equal(t, "100000", agg.Collected.String())
	assert.Equal(t, "150000", agg.Expected.String())
	assert.Equal(t, "66.67", agg.Percentage.String())
	assert.Equal(t, []string{"citra"}, agg.Unpaid)

	other := decode[AggregateDTO](t, s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/aggregate?period=2025-01", "", http.StatusOK))
	assert.Equal(t, 0, other.PaidCount)

	s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/aggregate?period=maret", "", http.StatusBadRequest)
}

func TestGetTypeArrears(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	// ani pays Feb and Mar, budi only Mar, citra nothing
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["ani"],"periods":["2025-02","2025-03"]}`, http.StatusCreated)
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["budi"],"periods":["2025-03"]}`, http.StatusCreated)

	report := decode[ArrearsDTO](t, s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/arrears", "", http.StatusOK))

	assert.Equal(t, "2025-03", report.Current.Key)
	require.NotNil(t, report.Previous)
	assert.Equal(t, "2025-02", report.Previous.Key)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []string{"ani", "budi"}, report.Paid)
	assert.Equal(t, []string{"citra"}, report.Arrears)
	assert.Empty(t, report.Unpaid)
	assert.Equal(t, 1, report.PaidWithArrears)
}

func TestGetTypeMatrix(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["citra"],"periods":["2025-01"]}`, http.StatusCreated)

	m := decode[MatrixDTO](t, s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/matrix?year=2025", "", http.StatusOK))

	require.Len(t, m.Columns, 12)
	assert.Equal(t, "Jan", m.Columns[0].ShortLabel)
	assert.Equal(t, 1, m.Columns[0].Paid)
	require.Len(t, m.Rows, 3)
	for _, row := range m.Rows {
		require.Len(t, row.Cells, 12)
		if row.Member.ID == "citra" {
			assert.Equal(t, "paid", row.Cells[0])
			assert.Equal(t, "Lunas", row.Labels[0])
		}
	}

	s.mustCall(t, http.MethodGet, "/api/contribution-types/iuran/matrix?year=abc", "", http.StatusBadRequest)
}

func TestGetUnpaidMembers(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	s.mustCall(t, http.MethodPost, "/api/contributions/bulk",
		`{"contribution_type_id":"iuran","member_ids":["budi"],"periods":["2025-03"]}`, http.StatusCreated)

	members := decode[[]MemberDTO](t, s.mustCall(t, http.MethodGet,
		"/api/contribution-types/iuran/unpaid-members?period=2025-03", "", http.StatusOK))

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	assert.ElementsMatch(t, []string{"ani", "citra"}, ids)
}

// =============================================================================
// ADMIN & MISC
// =============================================================================

func TestDeactivateExpired(t *testing.T) {
	s := newTestServer(t)
	s.seedRoster(t)
	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		factory.OneTimeJSON("lama", "Sumbangan Lama", "kas", 1000, "2025-03-01"), http.StatusCreated)
	s.mustCall(t, http.MethodPost, "/api/contribution-types",
		factory.OneTimeJSON("baru", "Sumbangan Baru", "kas", 1000, "2025-04-01"), http.StatusCreated)

	res := decode[DeactivateResultDTO](t, s.mustCall(t, http.MethodPost, "/api/admin/deactivate-expired", "", http.StatusOK))
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "lama", res.Deactivated[0].ID)
	assert.False(t, res.Deactivated[0].IsActive)

	active := decode[[]ContributionTypeDTO](t, s.mustCall(t, http.MethodGet, "/api/contribution-types?active=true", "", http.StatusOK))
	assert.Len(t, active, 2)
}

func TestMembersAndWallets(t *testing.T) {
	s := newTestServer(t)

	s.mustCall(t, http.MethodPost, "/api/members", `{"name":"   "}`, http.StatusBadRequest)
	s.mustCall(t, http.MethodPost, "/api/members", `{"name":"Eka","status":"inactive"}`, http.StatusCreated)
	s.mustCall(t, http.MethodPost, "/api/members", `{"id":"ani","name":"Ani"}`, http.StatusCreated)

	all := decode[[]MemberDTO](t, s.mustCall(t, http.MethodGet, "/api/members", "", http.StatusOK))
	active := decode[[]MemberDTO](t, s.mustCall(t, http.MethodGet, "/api/members?active=true", "", http.StatusOK))
	assert.Len(t, all, 2)
	require.Len(t, active, 1)
	assert.Equal(t, "ani", active[0].ID)

	s.mustCall(t, http.MethodGet, "/api/members/ghost", "", http.StatusNotFound)
	s.mustCall(t, http.MethodPost, "/api/wallets", `{"name":"Kas","balance":-5}`, http.StatusBadRequest)
	s.mustCall(t, http.MethodGet, "/api/wallets/ghost", "", http.StatusNotFound)

	health := decode[map[string]string](t, s.mustCall(t, http.MethodGet, "/api/health", "", http.StatusOK))
	assert.Equal(t, "ok", health["status"])
}
