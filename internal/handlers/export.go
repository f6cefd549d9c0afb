package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/services"
)

// ExportHandler serves per-user todo snapshots kept in object storage.
type ExportHandler struct {
	exportService *services.ExportService
	log           logging.Logger
}

func NewExportHandler(exportService *services.ExportService, log logging.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, log: log}
}

// ExportRouter registers export routes behind authMiddleware.
func ExportRouter(r chi.Router, handler *ExportHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/export", handler.CreateExport)
		r.Get("/export", handler.DownloadExport)
		r.Delete("/export", handler.DeleteExport)
	})
}

func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		h.writeExportError(w, r, "export failed", err)
		return
	}

	h.log.Info(r.Context(), "todos exported", "user_id", userID, "count", len(snapshot.Todos))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ExportHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rc, err := h.exportService.Open(r.Context(), userID)
	if err != nil {
		h.writeExportError(w, r, "open export failed", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="todos.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn(r.Context(), "stream export failed", "user_id", userID, "error", err)
	}
}

func (h *ExportHandler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.exportService.Delete(r.Context(), userID); err != nil {
		h.writeExportError(w, r, "delete export failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ExportHandler) writeExportError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, services.ErrExportDisabled):
		writeError(w, http.StatusNotFound, "Export is not enabled")
	case errors.Is(err, services.ErrExportNotFound):
		writeError(w, http.StatusNotFound, "Export not found")
	default:
		writeInternal(w, r, h.log, msg, err)
	}
}
