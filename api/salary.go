package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tillkit/ledger-core/payroll"
)

// =============================================================================
// SALARY ENTRY HANDLERS
// =============================================================================
//
//   POST   /api/salary-entries                          Open an entry
//   GET    /api/salary-entries/{id}                     Current statement
//   DELETE /api/salary-entries/{id}                     Discard
//   PUT    /api/salary-entries/{id}/date                Change month
//   PUT    /api/salary-entries/{id}/days-present        Attendance
//   POST   /api/salary-entries/{id}/rows/{kind}         Add row
//   PUT    /api/salary-entries/{id}/rows/{kind}/{rowID} Edit row
//   DELETE /api/salary-entries/{id}/rows/{kind}/{rowID} Remove row
//   POST   /api/salary-entries/{id}/complete            Record slip and close

const dateLayout = "2006-01-02"

// CreateSalaryEntry opens an entry for a catalog employee.
func (h *Handler) CreateSalaryEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateSalaryEntryRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	emp, ok := h.Catalog().Employee(req.EmployeeID)
	if !ok {
		writeError(w, http.StatusNotFound, "employee not found", nil)
		return
	}

	e := payroll.NewEntry(emp, date, payroll.NewCalculator(h.Policy))
	e.SetClock(h.clock)
	if req.BaseSalary != nil {
		e.SetBaseSalary(*req.BaseSalary)
	}
	st, err := e.Statement()
	if err != nil {
		writeEngineError(w, err, nil)
		return
	}

	h.mu.Lock()
	h.entries[e.ID()] = e
	h.touch(e.ID())
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, toSalaryEntryDTO(e, st))
}

func (h *Handler) GetSalaryEntry(w http.ResponseWriter, r *http.Request) {
	h.withEntry(w, r, func(e *payroll.Entry) error { return nil })
}

func (h *Handler) DiscardSalaryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	_, ok := h.entries[id]
	delete(h.entries, id)
	delete(h.touched, id)
	h.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "salary entry not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSalaryDate moves the entry to another month; days in month follows.
func (h *Handler) SetSalaryDate(w http.ResponseWriter, r *http.Request) {
	var req DateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	h.withEntry(w, r, func(e *payroll.Entry) error { return e.SetDate(date) })
}

func (h *Handler) SetDaysPresent(w http.ResponseWriter, r *http.Request) {
	var req DaysPresentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	h.withEntry(w, r, func(e *payroll.Entry) error { return e.SetDaysPresent(*req.DaysPresent) })
}

func (h *Handler) AddRow(w http.ResponseWriter, r *http.Request) {
	kind, ok := payroll.ParseRowKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid row kind", nil)
		return
	}
	var req RowRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	h.withEntry(w, r, func(e *payroll.Entry) error {
		e.Rows(kind).Add(req.Name, *req.Amount, req.Note)
		return nil
	})
}

func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	kind, ok := payroll.ParseRowKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid row kind", nil)
		return
	}
	var req RowRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	rowID := payroll.RowID(chi.URLParam(r, "rowID"))
	h.withEntry(w, r, func(e *payroll.Entry) error {
		return e.Rows(kind).Update(rowID, req.Name, *req.Amount, req.Note)
	})
}

func (h *Handler) RemoveRow(w http.ResponseWriter, r *http.Request) {
	kind, ok := payroll.ParseRowKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid row kind", nil)
		return
	}
	rowID := payroll.RowID(chi.URLParam(r, "rowID"))
	h.withEntry(w, r, func(e *payroll.Entry) error {
		return e.Rows(kind).Remove(rowID)
	})
}

// CompleteSalaryEntry records the slip and closes the entry.
func (h *Handler) CompleteSalaryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entries[id]
	if !ok {
		writeError(w, http.StatusNotFound, "salary entry not found", nil)
		return
	}
	slip, err := e.Slip()
	if err != nil {
		writeEngineError(w, err, nil)
		return
	}
	if err := h.Slips.SaveSlip(r.Context(), slip); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save slip", err)
		return
	}
	delete(h.entries, id)
	delete(h.touched, id)

	h.Logger.Info().
		Str("slip_id", slip.ID).
		Str("employee_id", slip.EmployeeID).
		Str("month", slip.Month).
		Str("net_accrual", money(slip.Statement.NetAccrual)).
		Msg("salary slip completed")
	writeJSON(w, http.StatusCreated, toSlipDTO(slip))
}

// withEntry runs fn against the entry named in the URL and writes the
// recomputed statement.
func (h *Handler) withEntry(w http.ResponseWriter, r *http.Request, fn func(e *payroll.Entry) error) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entries[id]
	if !ok {
		writeError(w, http.StatusNotFound, "salary entry not found", nil)
		return
	}
	h.touch(id)

	if err := fn(e); err != nil {
		writeEngineError(w, err, h.entryState(e))
		return
	}
	st, err := e.Statement()
	if err != nil {
		writeEngineError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toSalaryEntryDTO(e, st))
}

func (h *Handler) entryState(e *payroll.Entry) any {
	st, err := e.Statement()
	if err != nil {
		return nil
	}
	return toSalaryEntryDTO(e, st)
}
