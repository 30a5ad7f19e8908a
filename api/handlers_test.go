/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Billing session flow through completion
- Rejected split edits (422 with unchanged state)
- Purchase per-item rates
- Salary entry flow through slip completion
- Catalog replacement, record listing, idle sweeping
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillkit/ledger-core/factory"
	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/generic/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testCatalog = `{
  "default_tax_rate": 5,
  "products": [
    {"id": "tea", "name": "Masala Tea", "price": "200"},
    {"id": "cake", "name": "Cake", "price": "350"},
    {"id": "rice", "name": "Rice", "price": "1000", "tax_rate": 12}
  ],
  "employees": [
    {"id": "emp-1", "name": "A. Kumar", "base_salary": "50000"}
  ]
}`

var testNow = time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
	mem     *store.Memory
}

func newTestServer(t *testing.T, policy generic.ValidationPolicy) *testServer {
	t.Helper()
	catalog, err := factory.ParseCatalog(testCatalog)
	require.NoError(t, err)

	mem := store.NewMemory()
	h := NewHandler(Options{
		Recorder: mem,
		Slips:    mem,
		Catalog:  catalog,
		Policy:   policy,
		Logger:   zerolog.Nop(),
		Clock:    func() time.Time { return testNow },
	})
	return &testServer{t: t, handler: h, router: NewRouter(h, RouterOptions{}), mem: mem}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (s *testServer) do(method, path string, body any, out any) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(s.t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (s *testServer) openSession(kind string) SessionDTO {
	s.t.Helper()
	var dto SessionDTO
	code := s.do(http.MethodPost, "/api/sessions", CreateSessionRequest{Kind: kind}, &dto)
	require.Equal(s.t, http.StatusCreated, code)
	return dto
}

func (s *testServer) addItem(sessionID, catalogID string) SessionDTO {
	s.t.Helper()
	var dto SessionDTO
	code := s.do(http.MethodPost, "/api/sessions/"+sessionID+"/items", AddItemRequest{CatalogID: catalogID}, &dto)
	require.Equal(s.t, http.StatusOK, code)
	return dto
}

// rejection is the 422 body with the session state attached.
type rejection struct {
	Error   string     `json:"error"`
	Details string     `json:"details"`
	State   SessionDTO `json:"state"`
}

// =============================================================================
// BILLING FLOW
// =============================================================================

func TestAPI_BillingFlow_SplitAndComplete(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)

	// GIVEN: A billing session with 200x1 and 350x2
	sess := srv.openSession("billing")
	assert.Equal(t, "flat", sess.Tax.Mode)
	srv.addItem(sess.ID, "tea")
	srv.addItem(sess.ID, "cake")
	dto := srv.addItem(sess.ID, "cake")

	// THEN: 900 / 45 / 945
	assert.Equal(t, "900.00", dto.Totals.Subtotal)
	assert.Equal(t, "45.00", dto.Totals.TaxAmount)
	assert.Equal(t, "945.00", dto.Totals.NetTotal)
	assert.Equal(t, "945.00", dto.Split.Cash)

	// WHEN: Split enabled and 300 online
	base := "/api/sessions/" + sess.ID
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split", map[string]bool{"enabled": true}, &dto))
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split/online", map[string]any{"value": "300"}, &dto))
	assert.Equal(t, "645.00", dto.Split.Cash)
	assert.Equal(t, "300.00", dto.Split.Online)

	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split/method", MethodRequest{Method: "card"}, &dto))
	assert.Equal(t, "card", dto.Split.OnlineMethod)

	// WHEN: Completed
	var rec RecordDTO
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, base+"/complete", nil, &rec))

	// THEN: The record carries the split breakdown and the session is gone
	assert.Equal(t, "billing", rec.Kind)
	assert.Equal(t, "945.00", rec.NetTotal)
	assert.Equal(t, "Split", rec.PaymentDetails.Type)
	require.NotNil(t, rec.PaymentDetails.Cash)
	assert.Equal(t, "645.00", *rec.PaymentDetails.Cash)
	assert.Equal(t, "300.00", *rec.PaymentDetails.Online)
	assert.Equal(t, "card", rec.PaymentDetails.OnlineMethod)
	assert.Nil(t, rec.PaymentDetails.Amount)
	assert.Equal(t, testNow.Format(time.RFC3339), rec.CompletedAt)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, base, nil, nil))

	var listed []RecordDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/records?kind=billing", nil, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, rec.ID, listed[0].ID)

	var fetched RecordDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/records/"+rec.ID, nil, &fetched))
	assert.Len(t, fetched.Items, 2)
}

func TestAPI_RejectedOnlineEdit_ReturnsUnchangedState(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "tea")
	srv.addItem(sess.ID, "cake")
	srv.addItem(sess.ID, "cake")
	base := "/api/sessions/" + sess.ID
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split", map[string]bool{"enabled": true}, nil))
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split/online", map[string]any{"value": 300}, nil))

	// WHEN: online above the net total
	var rej rejection
	code := srv.do(http.MethodPut, base+"/split/online", map[string]any{"value": "2000"}, &rej)

	// THEN: 422 and the previous legs
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "edit rejected", rej.Error)
	assert.Equal(t, "645.00", rej.State.Split.Cash)
	assert.Equal(t, "300.00", rej.State.Split.Online)
}

func TestAPI_ClearedLegRendersEmpty(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "tea")
	base := "/api/sessions/" + sess.ID
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split", map[string]bool{"enabled": true}, nil))

	var dto SessionDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split/online", map[string]any{"value": nil}, &dto))
	assert.Equal(t, "", dto.Split.Online)
	assert.Equal(t, "210.00", dto.Split.Cash)
}

func TestAPI_SubCentOnline_RecordSums(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "tea")
	srv.addItem(sess.ID, "cake")
	srv.addItem(sess.ID, "cake")
	base := "/api/sessions/" + sess.ID
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split", map[string]bool{"enabled": true}, nil))

	var dto SessionDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/split/online", map[string]any{"value": "300.005"}, &dto))
	assert.Equal(t, "644.99", dto.Split.Cash)
	assert.Equal(t, "300.01", dto.Split.Online)

	var rec RecordDTO
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, base+"/complete", nil, &rec))
	require.NotNil(t, rec.PaymentDetails.Cash)
	require.NotNil(t, rec.PaymentDetails.Online)
	assert.Equal(t, "644.99", *rec.PaymentDetails.Cash)
	assert.Equal(t, "300.01", *rec.PaymentDetails.Online)
}

func TestAPI_LegEditWhileUnsplit(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "tea")

	code := srv.do(http.MethodPut, "/api/sessions/"+sess.ID+"/split/cash", map[string]any{"value": "10"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestAPI_ItemEdits(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "tea")
	srv.addItem(sess.ID, "cake")
	base := "/api/sessions/" + sess.ID

	var dto SessionDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodPatch, base+"/items/cake", AdjustQuantityRequest{Delta: 2}, &dto))
	assert.Equal(t, 3, dto.Items[1].Quantity)

	// A delta that would wrap the quantity is refused and the line stays
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPatch, base+"/items/cake", `{"delta": 9223372036854775807}`, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPut, base+"/items/cake/tax", `{"rate": 12}`, nil))

	require.Equal(t, http.StatusOK, srv.do(http.MethodPatch, base+"/items/cake", AdjustQuantityRequest{Delta: -3}, &dto))
	assert.Len(t, dto.Items, 1)

	require.Equal(t, http.StatusOK, srv.do(http.MethodDelete, base+"/items/tea", nil, &dto))
	assert.Empty(t, dto.Items)
	assert.Equal(t, "0.00", dto.Totals.NetTotal)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, base+"/items/tea", nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPost, base+"/items", AddItemRequest{CatalogID: "nope"}, nil))
}

func TestAPI_TaxAndDiscount(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "rice")
	base := "/api/sessions/" + sess.ID

	var dto SessionDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/tax", `{"rate": 12}`, &dto))
	assert.Equal(t, "120.00", dto.Totals.TaxAmount)

	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/discount", `{"type": "percentage", "value": 10}`, &dto))
	assert.Equal(t, "100.00", dto.Totals.DiscountAmount)
	assert.Equal(t, "1020.00", dto.Totals.NetTotal)
	assert.Equal(t, "percentage", dto.Discount.Type)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPut, base+"/discount", `{"type": "bogo", "value": 10}`, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPut, base+"/tax", `{}`, nil))
}

func TestAPI_Strict_DiscountAboveSubtotal(t *testing.T) {
	srv := newTestServer(t, generic.Strict)
	sess := srv.openSession("billing")
	srv.addItem(sess.ID, "tea")

	var rej rejection
	code := srv.do(http.MethodPut, "/api/sessions/"+sess.ID+"/discount", `{"type": "fixed", "value": 500}`, &rej)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "0.00", rej.State.Totals.DiscountAmount)
}

func TestAPI_CompleteEmptySession(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("billing")

	code := srv.do(http.MethodPost, "/api/sessions/"+sess.ID+"/complete", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestAPI_DiscardSession(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("purchase")

	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/sessions/"+sess.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, "/api/sessions/"+sess.ID, nil, nil))
}

func TestAPI_CreateSession_InvalidKind(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/sessions", CreateSessionRequest{Kind: "refund"}, nil))
}

// =============================================================================
// PURCHASE FLOW
// =============================================================================

func TestAPI_Purchase_PerItemRates(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sess := srv.openSession("purchase")
	assert.Equal(t, "per_item", sess.Tax.Mode)
	srv.addItem(sess.ID, "rice")
	srv.addItem(sess.ID, "tea")
	base := "/api/sessions/" + sess.ID

	// rice 1000 @12 + tea 200 @5
	var dto SessionDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, base, nil, &dto))
	assert.Equal(t, "130.00", dto.Totals.TaxAmount)

	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/items/tea/tax", `{"rate": 18}`, &dto))
	assert.Equal(t, "156.00", dto.Totals.TaxAmount)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPut, base+"/items/tea/tax", `{"rate": 7}`, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPut, base+"/tax", `{"rate": 5}`, nil))
}

// =============================================================================
// SALARY ENTRY FLOW
// =============================================================================

func TestAPI_SalaryEntryFlow(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)

	// GIVEN: An entry for June (30 days)
	var entry SalaryEntryDTO
	code := srv.do(http.MethodPost, "/api/salary-entries",
		CreateSalaryEntryRequest{EmployeeID: "emp-1", Date: "2025-06-10"}, &entry)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 30, entry.Statement.DaysInMonth)
	assert.Equal(t, "50000.00", entry.Statement.NetAccrual)
	base := "/api/salary-entries/" + entry.ID

	// WHEN: 28 days present, one deduction, one extra
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/days-present", `{"days_present": 28}`, &entry))
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, base+"/rows/deduction", `{"name": "Late fee", "amount": 2000}`, &entry))
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, base+"/rows/extra", `{"name": "Overtime", "amount": "1500"}`, &entry))

	// THEN
	assert.Equal(t, "46666.67", entry.Statement.ProratedBase)
	assert.Equal(t, "46166.67", entry.Statement.NetAccrual)

	// Row edit and removal
	require.Len(t, entry.Extras, 1)
	extraID := entry.Extras[0].ID
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/rows/extra/"+extraID, `{"name": "Overtime", "amount": 1000}`, &entry))
	assert.Equal(t, "45666.67", entry.Statement.NetAccrual)
	require.Equal(t, http.StatusOK, srv.do(http.MethodDelete, base+"/rows/extra/"+extraID, nil, &entry))
	assert.Empty(t, entry.Extras)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, base+"/rows/extra/"+extraID, nil, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, base+"/rows/bonus", `{"name": "x", "amount": 1}`, nil))

	// Date change re-derives days in month
	require.Equal(t, http.StatusOK, srv.do(http.MethodPut, base+"/date", `{"date": "2024-02-01"}`, &entry))
	assert.Equal(t, 29, entry.Statement.DaysInMonth)

	// Complete
	var slip SlipDTO
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, base+"/complete", nil, &slip))
	assert.Equal(t, "2024-02", slip.Month)
	assert.Equal(t, "emp-1", slip.EmployeeID)

	var slips []SlipDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/slips?employee_id=emp-1", nil, &slips))
	assert.Len(t, slips, 1)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, base, nil, nil))
}

func TestAPI_SalaryEntry_Strict(t *testing.T) {
	srv := newTestServer(t, generic.Strict)

	var entry SalaryEntryDTO
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/salary-entries",
		`{"employee_id": "emp-1", "date": "2025-06-01"}`, &entry))
	base := "/api/salary-entries/" + entry.ID

	code := srv.do(http.MethodPut, base+"/days-present", `{"days_present": 31}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestAPI_SalaryEntry_InvalidInput(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPost, "/api/salary-entries",
		`{"employee_id": "nobody", "date": "2025-06-01"}`, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/salary-entries",
		`{"employee_id": "emp-1", "date": "June 1"}`, nil))
}

// =============================================================================
// CATALOG
// =============================================================================

func TestAPI_Catalog(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)

	var catalog CatalogDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/catalog", nil, &catalog))
	assert.Len(t, catalog.Products, 3)
	assert.Equal(t, "200.00", catalog.Products[0].Price)

	code := srv.do(http.MethodPut, "/api/catalog", `{"products": [{"id": "gum", "name": "Gum", "price": "5"}]}`, &catalog)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, catalog.Products, 1)
	assert.Empty(t, catalog.Employees)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPut, "/api/catalog",
		`{"products": [{"id": "gum", "name": "Gum", "price": "5", "tax_rate": 3}]}`, nil))
}

// =============================================================================
// RECORDS AND SWEEPING
// =============================================================================

func TestAPI_Records_InvalidKindAndMissing(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/records?kind=refund", nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/records/missing", nil, nil))

	var all []RecordDTO
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/records", nil, &all))
	assert.Empty(t, all)
}

func TestHandler_SweepIdle(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	srv.openSession("billing")
	srv.openSession("purchase")
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/salary-entries",
		`{"employee_id": "emp-1", "date": "2025-06-01"}`, nil))

	// Nothing is idle yet
	assert.Equal(t, 0, srv.handler.SweepIdle(testNow, time.Hour))

	// Two hours later everything is
	sweeper := NewIdleSweeper(srv.handler)
	sweeper.MaxIdle = time.Hour
	assert.Equal(t, 3, sweeper.sweep(testNow.Add(2*time.Hour)))

	sessions, entries := srv.handler.OpenCount()
	assert.Equal(t, 0, sessions)
	assert.Equal(t, 0, entries)
}

func TestIdleSweeper_StartStop(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	sweeper := NewIdleSweeper(srv.handler)
	sweeper.CheckInterval = time.Millisecond

	sweeper.Start()
	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, generic.Permissive)
	var body map[string]string
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
