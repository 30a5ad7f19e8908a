package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillkit/ledger-core/billing"
	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/purchase"
)

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// CreateSession opens a billing or purchase session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	var s *generic.Session
	switch generic.Kind(req.Kind) {
	case generic.KindBilling:
		s = billing.NewSessionWithClock(h.Policy, h.clock)
	case generic.KindPurchase:
		s = purchase.NewSessionWithClock(h.Policy, h.clock)
	}

	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.touch(string(s.ID()))
	dto := toSessionDTO(s)
	h.mu.Unlock()

	h.Logger.Debug().Str("session_id", string(s.ID())).Str("kind", req.Kind).Msg("session opened")
	writeJSON(w, http.StatusCreated, dto)
}

// GetSession returns the current state of a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, nil
	})
}

// DiscardSession drops a session without recording anything.
func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	id := generic.SessionID(chi.URLParam(r, "id"))

	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	delete(h.touched, string(id))
	h.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteSession records the session and closes it.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id := generic.SessionID(chi.URLParam(r, "id"))

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	rec, err := s.Record()
	if err != nil {
		writeEngineError(w, err, toSessionDTO(s))
		return
	}
	if err := h.Recorder.SaveRecord(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save record", err)
		return
	}
	delete(h.sessions, id)
	delete(h.touched, string(id))

	h.Logger.Info().
		Str("record_id", string(rec.ID)).
		Str("kind", string(rec.Kind)).
		Str("net_total", money(rec.NetTotal)).
		Str("payment_type", string(rec.Payment.Type)).
		Msg("record completed")
	writeJSON(w, http.StatusCreated, toRecordDTO(rec))
}

// =============================================================================
// LEDGER EDITS
// =============================================================================

// AddItem adds a catalog product, or increments its quantity.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	entry, ok := h.Catalog().Product(generic.ItemID(req.CatalogID))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found", nil)
		return
	}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.AddItem(entry)
	})
}

// AdjustQuantity changes a line's quantity by delta. A line reaching zero
// is removed.
func (h *Handler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req AdjustQuantityRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	itemID := generic.ItemID(chi.URLParam(r, "itemID"))
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.AdjustQuantity(itemID, req.Delta)
	})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := generic.ItemID(chi.URLParam(r, "itemID"))
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.RemoveItem(itemID)
	})
}

// SetItemTaxRate picks the per-item rate for one line.
func (h *Handler) SetItemTaxRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	itemID := generic.ItemID(chi.URLParam(r, "itemID"))
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.SetItemTaxRate(itemID, *req.Rate)
	})
}

// =============================================================================
// TAX AND DISCOUNT
// =============================================================================

func (h *Handler) SetTaxRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.SetTaxRate(*req.Rate)
	})
}

func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	dt, err := generic.ParseDiscountType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid discount type", err)
		return
	}
	spec := generic.DiscountSpec{Type: dt, Value: *req.Value}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.SetDiscount(spec)
	})
}

// =============================================================================
// SPLIT PAYMENT
// =============================================================================

func (h *Handler) SetSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitToggleRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		if *req.Enabled {
			s.EnableSplit()
		} else {
			s.DisableSplit()
		}
		return http.StatusOK, nil
	})
}

// SetCash edits the cash leg; online becomes the remainder.
func (h *Handler) SetCash(w http.ResponseWriter, r *http.Request) {
	var req LegRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.SetCash(req.Raw())
	})
}

// SetOnline edits the online leg; cash becomes the remainder.
func (h *Handler) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req LegRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.SetOnline(req.Raw())
	})
}

func (h *Handler) SetOnlineMethod(w http.ResponseWriter, r *http.Request) {
	var req MethodRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	method, err := generic.ParseOnlineMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid method", err)
		return
	}
	h.withSession(w, r, func(s *generic.Session) (int, error) {
		return http.StatusOK, s.SetOnlineMethod(method)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// withSession looks up the session named in the URL, runs fn under the
// handler lock and writes the resulting state.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(s *generic.Session) (int, error)) {
	id := generic.SessionID(chi.URLParam(r, "id"))

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	h.touch(string(id))

	status, err := fn(s)
	if err != nil {
		h.Logger.Debug().Err(err).Str("session_id", string(id)).Msg("session edit refused")
		writeEngineError(w, err, toSessionDTO(s))
		return
	}
	writeJSON(w, status, toSessionDTO(s))
}
