package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/reports"
)

// ExportHandler streams the attendance CSV.
type ExportHandler struct {
	reports *reports.Service
	events  *events.Service
	logger  zerolog.Logger
	env     string
}

func NewExportHandler(reportsService *reports.Service, eventsService *events.Service, logger zerolog.Logger, env string) *ExportHandler {
	return &ExportHandler{
		reports: reportsService,
		events:  eventsService,
		logger:  logger.With().Str("handler", "export").Logger(),
		env:     env,
	}
}

// CSV handles GET /api/v1/events/{id}/export. The header is written
// before the rows stream, so a mid-export failure can only truncate the
// file, not corrupt the response status.
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	userID, ok := callerID(w, r, h.env)
	if !ok {
		return
	}

	if _, err := h.events.Get(r.Context(), organizerScope(r, userID), eventID); err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound), errors.Is(err, events.ErrNotOwner):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.env)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"event-%d-attendance.csv\"", eventID))
	w.WriteHeader(http.StatusOK)

	if err := h.reports.WriteCSV(r.Context(), eventID, w); err != nil {
		h.logger.Error().Err(err).Int64("event_id", eventID).Msg("csv export failed mid-stream")
	}
}
