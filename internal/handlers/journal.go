package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/app"
	"github.com/shrimpsizemoose/klassbok/internal/attendance"
	"github.com/shrimpsizemoose/klassbok/internal/export"
	"github.com/shrimpsizemoose/klassbok/internal/metrics"
	"github.com/shrimpsizemoose/klassbok/internal/models"
	"github.com/shrimpsizemoose/klassbok/internal/store"
)

type JournalHandler struct {
	service *app.Service
}

func NewJournalHandler(service *app.Service) *JournalHandler {
	return &JournalHandler{
		service: service,
	}
}

// Register mounts every journal and session route on mux.
func (h *JournalHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/{class}/journal", h.instrument(h.HandleCreateEntry))
	mux.HandleFunc("GET /api/v1/{class}/journal", h.instrument(h.HandleJournal))
	mux.HandleFunc("GET /api/v1/{class}/journal.xlsx", h.instrument(h.HandleExport))
	mux.HandleFunc("GET /api/v1/{class}/calendar", h.instrument(h.HandleCalendar))
	mux.HandleFunc("GET /api/v1/{class}/journal/{date}/statistics", h.instrument(h.HandleEntryStatistics))

	mux.HandleFunc("POST /api/v1/{class}/sessions/{date}", h.instrument(h.HandleOpenSession))
	mux.HandleFunc("GET /api/v1/{class}/sessions/{date}", h.instrument(h.HandleGetSession))
	mux.HandleFunc("DELETE /api/v1/{class}/sessions/{date}", h.instrument(h.HandleDiscardSession))
	mux.HandleFunc("POST /api/v1/{class}/sessions/{date}/scope", h.instrument(h.HandleSwitchScope))
	mux.HandleFunc("POST /api/v1/{class}/sessions/{date}/presence/{student}", h.instrument(h.HandleTogglePresence))
	mux.HandleFunc("GET /api/v1/{class}/sessions/{date}/candidates", h.instrument(h.HandleCandidates))
	mux.HandleFunc("POST /api/v1/{class}/sessions/{date}/temporary/{student}", h.instrument(h.HandleAdmit))
	mux.HandleFunc("POST /api/v1/{class}/sessions/{date}/temporary/{student}/toggle", h.instrument(h.HandleToggleTemporary))
	mux.HandleFunc("DELETE /api/v1/{class}/sessions/{date}/temporary/{student}", h.instrument(h.HandleRemoveTemporary))
	mux.HandleFunc("POST /api/v1/{class}/sessions/{date}/commit", h.instrument(h.HandleCommit))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *JournalHandler) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			duration := time.Since(start).Seconds()
			metrics.APIRequestDuration.WithLabelValues(
				r.Pattern,
				r.Method,
				strconv.Itoa(rec.status),
			).Observe(duration)
		}()

		if !h.service.ValidateHeaders(r.Header) {
			http.Error(rec, "these are not the droids you are looking for", http.StatusForbidden)
			return
		}

		next(rec, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attendance.ErrNoSession),
		errors.Is(err, attendance.ErrMissingEntry),
		errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateDay):
		status = http.StatusConflict
	case errors.Is(err, attendance.ErrUnknownStudent),
		errors.Is(err, attendance.ErrNotInScope),
		errors.Is(err, attendance.ErrUnknownScope),
		errors.Is(err, attendance.ErrNotEligible),
		errors.Is(err, attendance.ErrNotAdmitted):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Error.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func pathDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.PathValue("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		http.Error(w, "Invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return "", false
	}
	return date, true
}

func (h *JournalHandler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date  string `json:"date"`
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), r.PathValue("class"), req.Date, req.Topic)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *JournalHandler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.JournalSummary(r.Context(), r.PathValue("class"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

func (h *JournalHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	classID := r.PathValue("class")
	entries, err := h.service.JournalSummary(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+classID+`-journal.xlsx"`)
	opts := export.Options{
		SheetName:  h.service.Config.Export.SheetName,
		DateFormat: h.service.Config.Display.DateFormat,
	}
	if err := export.WriteJournal(w, opts, entries); err != nil {
		logger.Error.Printf("Failed to export journal of %s: %v", classID, err)
	}
}

func (h *JournalHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, bound); err != nil {
			http.Error(w, "Invalid date range, use YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	days, err := h.service.CalendarSummary(r.Context(), r.PathValue("class"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days": days,
	})
}

func (h *JournalHandler) HandleEntryStatistics(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	summary, err := h.service.EntryStatistics(r.Context(), r.PathValue("class"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
