/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zerolog)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the POS frontend

ROUTE GROUPS:
  /api/catalog/*          Catalog lookup and replacement
  /api/sessions/*         Billing and purchase sessions
  /api/salary-entries/*   Salary entry sessions
  /api/records/*          Completed records
  /api/slips              Completed salary slips
  /healthz                Liveness

SECURITY NOTE:
  No authentication middleware. The server is meant to sit behind the POS
  frontend on a trusted network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tillkit/ledger-core/obs"
)

// RouterOptions configures cross-cutting router behaviour.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(obs.RequestLogger{Logger: h.Logger}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.GetCatalog)
			r.Put("/", h.PutCatalog)
		})

		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DiscardSession)
				r.Post("/complete", h.CompleteSession)

				r.Post("/items", h.AddItem)
				r.Patch("/items/{itemID}", h.AdjustQuantity)
				r.Delete("/items/{itemID}", h.RemoveItem)
				r.Put("/items/{itemID}/tax", h.SetItemTaxRate)

				r.Put("/tax", h.SetTaxRate)
				r.Put("/discount", h.SetDiscount)

				r.Put("/split", h.SetSplit)
				r.Put("/split/cash", h.SetCash)
				r.Put("/split/online", h.SetOnline)
				r.Put("/split/method", h.SetOnlineMethod)
			})
		})

		// Salary entry routes
		r.Route("/salary-entries", func(r chi.Router) {
			r.Post("/", h.CreateSalaryEntry)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSalaryEntry)
				r.Delete("/", h.DiscardSalaryEntry)
				r.Post("/complete", h.CompleteSalaryEntry)
				r.Put("/date", h.SetSalaryDate)
				r.Put("/days-present", h.SetDaysPresent)
				r.Post("/rows/{kind}", h.AddRow)
				r.Put("/rows/{kind}/{rowID}", h.UpdateRow)
				r.Delete("/rows/{kind}/{rowID}", h.RemoveRow)
			})
		})

		// Record routes
		r.Get("/records", h.ListRecords)
		r.Get("/records/{id}", h.GetRecord)
		r.Get("/slips", h.ListSlips)
	})

	return r
}
