/*
handlers.go - HTTP API handlers for the transaction ledger

PURPOSE:
  Exposes billing, purchase and salary-entry sessions via REST API. Handles
  HTTP request/response, JSON serialization, and delegates every edit to
  the engine. The handlers hold no arithmetic of their own.

ENDPOINTS:
  Catalog:
    GET    /api/catalog                          Products and employees
    PUT    /api/catalog                          Replace catalog from JSON

  Sessions (billing and purchase):
    POST   /api/sessions                         Open a session
    GET    /api/sessions/{id}                    Current state
    DELETE /api/sessions/{id}                    Discard
    POST   /api/sessions/{id}/items              Add or increment a product
    PATCH  /api/sessions/{id}/items/{itemID}     Adjust quantity by delta
    DELETE /api/sessions/{id}/items/{itemID}     Remove a line
    PUT    /api/sessions/{id}/items/{itemID}/tax Per-item rate (purchase)
    PUT    /api/sessions/{id}/tax                Flat rate (billing)
    PUT    /api/sessions/{id}/discount           Discount spec
    PUT    /api/sessions/{id}/split              Enable or disable split
    PUT    /api/sessions/{id}/split/cash         Edit cash leg
    PUT    /api/sessions/{id}/split/online       Edit online leg
    PUT    /api/sessions/{id}/split/method       Online payment method
    POST   /api/sessions/{id}/complete           Record and close

  Salary entries: see salary.go

  Records:
    GET    /api/records?kind=billing             Completed records
    GET    /api/records/{id}                     One record
    GET    /api/slips?employee_id=emp-1          Completed salary slips

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Recorder / Slips: where completed records go
  - Catalog: read-only product and employee lookup
  - Open sessions and salary entries, keyed by ID

  Sessions are single-owner values. The handler serializes access to them
  with one mutex; an HTTP client may still only drive its own session.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Session, item, row or record not found
  - 422: Edit rejected; the body carries the unchanged state
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - sessions.go, salary.go: Session and salary-entry handlers
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tillkit/ledger-core/factory"
	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler. Recorder and Slips are required.
type Options struct {
	Recorder generic.Recorder
	Slips    payroll.SlipRecorder
	Catalog  *factory.Catalog
	Policy   generic.ValidationPolicy
	Logger   zerolog.Logger
	Clock    func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Recorder generic.Recorder
	Slips    payroll.SlipRecorder
	Policy   generic.ValidationPolicy
	Logger   zerolog.Logger

	validate *validator.Validate
	clock    func() time.Time

	catalogMu sync.RWMutex
	catalog   *factory.Catalog

	mu       sync.Mutex
	sessions map[generic.SessionID]*generic.Session
	entries  map[string]*payroll.Entry
	touched  map[string]time.Time
}

// NewHandler creates a handler. A nil catalog starts empty.
func NewHandler(opts Options) *Handler {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = factory.Empty()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Handler{
		Recorder: opts.Recorder,
		Slips:    opts.Slips,
		Policy:   opts.Policy,
		Logger:   opts.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
		catalog:  catalog,
		sessions: make(map[generic.SessionID]*generic.Session),
		entries:  make(map[string]*payroll.Entry),
		touched:  make(map[string]time.Time),
	}
}

// Catalog returns the current catalog.
func (h *Handler) Catalog() *factory.Catalog {
	h.catalogMu.RLock()
	defer h.catalogMu.RUnlock()
	return h.catalog
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// GetCatalog returns all products and employees.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCatalogDTO(h.Catalog()))
}

// PutCatalog replaces the catalog. Open sessions keep the line items they
// already hold.
func (h *Handler) PutCatalog(w http.ResponseWriter, r *http.Request) {
	var cj factory.CatalogJSON
	if err := json.NewDecoder(r.Body).Decode(&cj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return
	}
	catalog, err := factory.FromJSON(cj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog", err)
		return
	}

	h.catalogMu.Lock()
	h.catalog = catalog
	h.catalogMu.Unlock()

	h.Logger.Info().
		Int("products", len(catalog.Products())).
		Int("employees", len(catalog.Employees())).
		Msg("catalog replaced")
	writeJSON(w, http.StatusOK, toCatalogDTO(catalog))
}

func toCatalogDTO(c *factory.Catalog) CatalogDTO {
	dto := CatalogDTO{
		Products:  []CatalogEntryDTO{},
		Employees: []EmployeeDTO{},
	}
	for _, p := range c.Products() {
		dto.Products = append(dto.Products, CatalogEntryDTO{
			ID:       string(p.ID),
			Name:     p.Name,
			Price:    money(p.Price),
			Category: p.Category,
			TaxRate:  p.TaxRate.String(),
		})
	}
	for _, e := range c.Employees() {
		dto.Employees = append(dto.Employees, EmployeeDTO{
			ID:         e.ID,
			Name:       e.Name,
			BaseSalary: money(e.BaseSalary),
		})
	}
	return dto
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns completed records, optionally filtered by kind.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	var kind generic.Kind
	if q := r.URL.Query().Get("kind"); q != "" {
		k, err := generic.ParseKind(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid kind", err)
			return
		}
		kind = k
	}

	records, err := h.Recorder.ListRecords(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list records", err)
		return
	}

	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRecord returns one completed record.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))
	rec, err := h.Recorder.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, generic.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// ListSlips returns completed salary slips, optionally for one employee.
func (h *Handler) ListSlips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Slips.ListSlips(r.Context(), r.URL.Query().Get("employee_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list slips", err)
		return
	}
	dtos := make([]SlipDTO, 0, len(slips))
	for _, s := range slips {
		dtos = append(dtos, toSlipDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// IDLE TRACKING
// =============================================================================

// touch marks a session or entry as used now. Callers hold h.mu.
func (h *Handler) touch(id string) {
	h.touched[id] = h.clock()
}

// SweepIdle discards sessions and salary entries untouched since
// now-maxIdle and returns how many were dropped.
func (h *Handler) SweepIdle(now time.Time, maxIdle time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := now.Add(-maxIdle)
	dropped := 0
	for id, last := range h.touched {
		if !last.Before(cutoff) {
			continue
		}
		delete(h.sessions, generic.SessionID(id))
		delete(h.entries, id)
		delete(h.touched, id)
		dropped++
	}
	return dropped
}

// OpenCount returns the number of open sessions and salary entries.
func (h *Handler) OpenCount() (sessions, entries int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions), len(h.entries)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into req and runs struct validation.
func (h *Handler) decode(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}
	return nil
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

// writeEngineError maps an engine error onto a status. state is attached to
// rejections so the client can redraw unchanged fields.
func writeEngineError(w http.ResponseWriter, err error, state any) {
	switch {
	case generic.IsRejection(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "edit rejected",
			Details: err.Error(),
			State:   state,
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
