package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/orchestrator"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/series"
)

// maxListDays bounds list and export ranges.
const maxListDays = 92

type Scheduler interface {
	Book(ctx context.Context, req orchestrator.BookRequest) (orchestrator.BookResult, error)
	BookRecurring(ctx context.Context, req orchestrator.BookRequest, count int) (orchestrator.RecurringResult, error)
	Cancel(ctx context.Context, eventID string, mode orchestrator.Mode) (orchestrator.CancelResult, error)
	Reschedule(ctx context.Context, req orchestrator.RescheduleRequest) (orchestrator.RescheduleResult, error)
	SeriesPreview(ctx context.Context, eventID string) (model.Appointment, []series.Match, error)
	SetContact(ctx context.Context, eventID, phone string) (orchestrator.ContactResult, error)
}

type DayPlanner interface {
	Day(ctx context.Context, date civil.Date, serviceText string) (availability.DayPlan, error)
}

type AppointmentLister interface {
	AppointmentsBetween(ctx context.Context, from, to civil.Date) ([]model.Appointment, error)
}

type SchedulingHandler struct {
	scheduler    Scheduler
	planner      DayPlanner
	appointments AppointmentLister
	logger       *slog.Logger
	loc          *time.Location
	calendarName string
	now          func() time.Time
}

func NewSchedulingHandler(scheduler Scheduler, planner DayPlanner, appointments AppointmentLister, logger *slog.Logger, loc *time.Location, calendarName string) *SchedulingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SchedulingHandler{
		scheduler:    scheduler,
		planner:      planner,
		appointments: appointments,
		logger:       logger,
		loc:          loc,
		calendarName: calendarName,
		now:          time.Now,
	}
}

func (h *SchedulingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/slots", h.Slots)
	mux.HandleFunc("GET /api/v1/appointments", h.List)
	mux.HandleFunc("POST /api/v1/appointments", h.Create)
	mux.HandleFunc("POST /api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("POST /api/v1/appointments/reschedule", h.Reschedule)
	mux.HandleFunc("POST /api/v1/appointments/contact", h.SetContact)
	mux.HandleFunc("GET /api/v1/appointments/series", h.Series)
	mux.HandleFunc("GET /api/v1/calendar.ics", h.ExportICS)
}

type appointmentItem struct {
	ID          string `json:"id"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone,omitempty"`
	Service     string `json:"service"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Status      string `json:"status"`
}

func toItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:          a.ID,
		ClientName:  a.ClientName,
		ClientPhone: a.ClientPhone,
		Service:     a.Service,
		Date:        a.Date.String(),
		StartTime:   a.StartTime.String(),
		EndTime:     a.EndTime.String(),
		Status:      string(a.Status),
	}
}

func toItems(appts []model.Appointment) []appointmentItem {
	out := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		out = append(out, toItem(a))
	}
	return out
}

func (h *SchedulingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date, err := civil.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	plan, err := h.planner.Day(r.Context(), date, strings.TrimSpace(r.URL.Query().Get("service")))
	if err != nil {
		h.logger.Error("slot planning failed", "err", err, "date", date.String())
		writeError(w, http.StatusBadGateway, "availability unavailable")
		return
	}
	if plan.Slots == nil {
		plan.Slots = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *SchedulingHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r, 7)
	if !ok {
		return
	}
	appts, err := h.appointments.AppointmentsBetween(r.Context(), from, to)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		writeError(w, http.StatusBadGateway, "calendar unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": toItems(appts)})
}

// dateRange reads from/to query params, defaulting to today plus days.
func (h *SchedulingHandler) dateRange(w http.ResponseWriter, r *http.Request, days int) (civil.Date, civil.Date, bool) {
	today := civil.DateOf(h.now().In(h.loc))
	from, to := today, today.AddDays(days)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = civil.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return civil.Date{}, civil.Date{}, false
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = civil.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to")
			return civil.Date{}, civil.Date{}, false
		}
	}
	if to.Before(from) || to.DaysSince(from) > maxListDays {
		writeError(w, http.StatusBadRequest, "invalid range")
		return civil.Date{}, civil.Date{}, false
	}
	return from, to, true
}

type createAppointmentRequest struct {
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	Service         string `json:"service"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Occurrences     int    `json:"occurrences"`
}

type createAppointmentResponse struct {
	Appointment    *appointmentItem  `json:"appointment,omitempty"`
	Appointments   []appointmentItem `json:"appointments,omitempty"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	Failures       []failureItem     `json:"failures,omitempty"`
	Reminder       string            `json:"reminder,omitempty"`
	ReminderErrors int               `json:"reminder_errors"`
	WhatsAppSent   bool              `json:"whatsapp_sent"`
	WhatsAppLink   string            `json:"whatsapp_link,omitempty"`
}

type failureItem struct {
	Date  string `json:"date"`
	Error string `json:"error"`
}

func (h *SchedulingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	book := orchestrator.BookRequest{
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Service:         req.Service,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
	}
	if req.Status != "" {
		book.Status = model.ParseStatus(req.Status)
	}

	if req.Occurrences > 1 {
		res, err := h.scheduler.BookRecurring(r.Context(), book, req.Occurrences)
		if err != nil {
			h.writeUseCaseError(w, err, nil)
			return
		}
		resp := createAppointmentResponse{
			Appointments:   toItems(res.Appointments),
			Succeeded:      res.Succeeded,
			Failed:         res.Failed,
			ReminderErrors: res.ReminderErrors,
			WhatsAppSent:   res.WhatsAppSent,
		}
		for _, f := range res.Failures {
			resp.Failures = append(resp.Failures, failureItem{Date: f.Date.String(), Error: f.Error})
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	res, err := h.scheduler.Book(r.Context(), book)
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	item := toItem(res.Appointment)
	resp := createAppointmentResponse{
		Appointment:  &item,
		Succeeded:    1,
		Reminder:     string(res.Reminder),
		WhatsAppSent: res.WhatsAppSent,
		WhatsAppLink: res.WhatsAppLink,
	}
	if res.ReminderFailed {
		resp.ReminderErrors = 1
	}
	writeJSON(w, http.StatusCreated, resp)
}

type cancelRequest struct {
	EventID string `json:"event_id"`
	Mode    string `json:"mode"`
}

type cancelResponse struct {
	DeletedCount int      `json:"deleted_count"`
	ErrorCount   int      `json:"error_count"`
	WhatsAppSent bool     `json:"whatsapp_sent"`
	DeletedIDs   []string `json:"deleted_ids"`
	Ambiguous    bool     `json:"ambiguous_match"`
}

func (h *SchedulingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	mode, err := orchestrator.ParseMode(strings.TrimSpace(req.Mode))
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	res, err := h.scheduler.Cancel(r.Context(), strings.TrimSpace(req.EventID), mode)
	if err != nil {
		h.writeUseCaseError(w, err, partialResult(res.ErrorCount, toCancelResponse(res)))
		return
	}
	writeJSON(w, http.StatusOK, toCancelResponse(res))
}

func toCancelResponse(res orchestrator.CancelResult) cancelResponse {
	ids := res.DeletedIDs
	if ids == nil {
		ids = []string{}
	}
	return cancelResponse{
		DeletedCount: res.DeletedCount,
		ErrorCount:   res.ErrorCount,
		WhatsAppSent: res.WhatsAppSent,
		DeletedIDs:   ids,
		Ambiguous:    res.Ambiguous,
	}
}

type rescheduleRequest struct {
	EventID string `json:"event_id"`
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
	Mode    string `json:"mode"`
}

type moveItem struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

type rescheduleResponse struct {
	SuccessCount   int        `json:"success_count"`
	ErrorCount     int        `json:"error_count"`
	ReminderErrors int        `json:"reminder_errors"`
	Restored       int        `json:"restored"`
	WhatsAppSent   bool       `json:"whatsapp_sent"`
	Moves          []moveItem `json:"moves"`
	Ambiguous      bool       `json:"ambiguous_match"`
}

func (h *SchedulingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	mode, err := orchestrator.ParseMode(strings.TrimSpace(req.Mode))
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	res, err := h.scheduler.Reschedule(r.Context(), orchestrator.RescheduleRequest{
		EventID: strings.TrimSpace(req.EventID),
		NewDate: req.NewDate,
		NewTime: req.NewTime,
		Mode:    mode,
	})
	if err != nil {
		h.writeUseCaseError(w, err, partialResult(res.ErrorCount, toRescheduleResponse(res)))
		return
	}
	writeJSON(w, http.StatusOK, toRescheduleResponse(res))
}

func toRescheduleResponse(res orchestrator.RescheduleResult) rescheduleResponse {
	resp := rescheduleResponse{
		SuccessCount:   res.SuccessCount,
		ErrorCount:     res.ErrorCount,
		ReminderErrors: res.ReminderErrors,
		Restored:       res.Restored,
		WhatsAppSent:   res.WhatsAppSent,
		Moves:          []moveItem{},
		Ambiguous:      res.Ambiguous,
	}
	for _, m := range res.Moves {
		resp.Moves = append(resp.Moves, moveItem{OldID: m.OldID, NewID: m.NewID, Date: m.Date.String(), Time: m.Time.String()})
	}
	return resp
}

type contactRequest struct {
	EventID     string `json:"event_id"`
	ClientPhone string `json:"client_phone"`
}

type contactResponse struct {
	EventID        string `json:"event_id"`
	ClientPhone    string `json:"client_phone"`
	Reminder       string `json:"reminder,omitempty"`
	ReminderErrors int    `json:"reminder_errors"`
}

func (h *SchedulingHandler) SetContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	res, err := h.scheduler.SetContact(r.Context(), req.EventID, req.ClientPhone)
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	resp := contactResponse{EventID: res.EventID, ClientPhone: res.Phone, Reminder: string(res.Reminder)}
	if res.ReminderFailed {
		resp.ReminderErrors = 1
	}
	writeJSON(w, http.StatusOK, resp)
}

type seriesMember struct {
	appointmentItem
	ClientMatch  string `json:"client_match"`
	ServiceMatch string `json:"service_match"`
	Ambiguous    bool   `json:"ambiguous"`
}

func (h *SchedulingHandler) Series(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(r.URL.Query().Get("event_id"))
	anchor, matches, err := h.scheduler.SeriesPreview(r.Context(), eventID)
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	members := make([]seriesMember, 0, len(matches))
	for _, m := range matches {
		members = append(members, seriesMember{
			appointmentItem: toItem(m.Appointment),
			ClientMatch:     string(m.Client.Kind),
			ServiceMatch:    string(m.Service.Kind),
			Ambiguous:       m.Ambiguous(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anchor":  toItem(anchor),
		"members": members,
	})
}

// partialResult returns resp when at least one target was attempted and failed,
// so multi-target errors still report their counts.
func partialResult(errorCount int, resp any) any {
	if errorCount == 0 {
		return nil
	}
	return resp
}

// writeUseCaseError maps orchestrator errors to statuses. A non-nil result is
// attached under "result".
func (h *SchedulingHandler) writeUseCaseError(w http.ResponseWriter, err error, result any) {
	var ve *orchestrator.ValidationError
	var ce *orchestrator.ConflictError
	var ue *orchestrator.UpstreamError
	var status int
	body := map[string]any{}
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body["error"] = ve.Error()
		body["field"] = ve.Field
	case errors.As(err, &ce):
		status = http.StatusConflict
		body["error"] = "slot not available"
		body["conflict"] = ce.Conflict
	case errors.Is(err, orchestrator.ErrNotFound):
		status = http.StatusNotFound
		body["error"] = "appointment not found"
	case errors.As(err, &ue):
		h.logger.Error("upstream failure", "err", err, "op", ue.Op)
		status = http.StatusBadGateway
		body["error"] = ue.Op + " failed"
	default:
		h.logger.Error("request failed", "err", err)
		status = http.StatusInternalServerError
		body["error"] = "internal error"
	}
	if result != nil {
		body["result"] = result
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
