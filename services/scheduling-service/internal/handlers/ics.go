package handlers

import (
	"bytes"
	"net/http"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/calendar"
)

// ExportICS serves the appointments in range as an iCalendar feed.
func (h *SchedulingHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r, 30)
	if !ok {
		return
	}
	appts, err := h.appointments.AppointmentsBetween(r.Context(), from, to)
	if err != nil {
		h.logger.Error("ics export failed", "err", err)
		writeError(w, http.StatusBadGateway, "calendar unavailable")
		return
	}
	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, h.calendarName, appts, h.loc); err != nil {
		h.logger.Error("ics encode failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agenda.ics"`)
	_, _ = w.Write(buf.Bytes())
}
