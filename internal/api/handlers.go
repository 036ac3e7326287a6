package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/internal/output"
	"github.com/rpgo/trust-solvency/internal/store"
)

// RunStore is the read side of the run history.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error)
	LoadRun(ctx context.Context, id string) (*domain.SimulationResult, error)
}

// Handler serves the run history.
type Handler struct {
	Store  RunStore
	Logger *slog.Logger
}

// NewHandler creates a handler over a run store.
func NewHandler(s RunStore, logger *slog.Logger) *Handler {
	return &Handler{Store: s, Logger: logger}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Health reports that the process is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListRuns handles GET /api/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger().Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	result, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetFundCSV handles GET /api/runs/{id}/fund.csv.
func (h *Handler) GetFundCSV(w http.ResponseWriter, r *http.Request) {
	h.writeFormatted(w, r, output.FundCSVExporter{}, "text/csv; charset=utf-8")
}

// GetReport handles GET /api/runs/{id}/report.md.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	h.writeFormatted(w, r, output.MarkdownFormatter{}, "text/markdown; charset=utf-8")
}

func (h *Handler) writeFormatted(w http.ResponseWriter, r *http.Request, f output.Formatter, contentType string) {
	result, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	data, err := f.Format(result)
	if err != nil {
		h.logger().Error("format run", "id", result.RunID, "format", f.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to format run", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// loadRun resolves {id}, writing the error response itself when it fails.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*domain.SimulationResult, bool) {
	id := chi.URLParam(r, "id")
	result, err := h.Store.LoadRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found", nil)
		return nil, false
	}
	if err != nil {
		h.logger().Error("load run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run", err)
		return nil, false
	}
	return result, true
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
