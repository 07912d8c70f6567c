package web

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// createImport handles POST /api/imports — accepts a TerraCloud CSV upload,
// registers a pending run and dispatches processing in the background. The
// response carries only the run; its outcome is read back from the audit log.
func (h *Handler) createImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, "request too large or malformed", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "no file provided", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		writeError(w, r, "only .csv files are accepted", "UNSUPPORTED_TYPE", http.StatusUnsupportedMediaType)
		return
	}

	result, err := h.svc.CreateImport(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	runID := result.Run.ID
	go func() {
		if err := h.svc.ProcessImport(context.Background(), runID); err != nil {
			log.Printf("import %s: %v", runID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, result.Run)
}

// listImports handles GET /api/imports.
func (h *Handler) listImports(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListImports(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Runs)
}

// getImport handles GET /api/imports/{id} — returns the run and its audit log.
func (h *Handler) getImport(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid run id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.GetImport(r.Context(), runID)
	if err != nil {
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"run": result.Run,
		"log": result.Log,
	})
}

// listSubscriptions handles GET /api/subscriptions?customer=.
func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSubscriptions(r.Context(), r.URL.Query().Get("customer"))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Subscriptions)
}

// listPlans handles GET /api/plans?customer=.
func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListBillingPlans(r.Context(), r.URL.Query().Get("customer"))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Plans)
}
