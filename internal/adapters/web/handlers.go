package web

import (
	"net/http"

	"m365-import/internal/app"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps CSV upload size. TerraCloud exports are a few hundred
// kilobytes; 16 MiB leaves generous headroom.
const maxUploadBytes = 16 << 20

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{svc: svc, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(maxUploadBytes))

	// ── Health (public) ──────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public API) ────────────────────────────────────────────────────
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Authenticated API ────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/api/auth/me", h.me)

		r.Post("/api/imports", h.createImport)
		r.Get("/api/imports", h.listImports)
		r.Get("/api/imports/{id}", h.getImport)

		r.Get("/api/subscriptions", h.listSubscriptions)
		r.Get("/api/plans", h.listPlans)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
