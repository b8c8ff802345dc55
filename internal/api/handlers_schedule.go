package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/internal/schedule"
)

func doctorIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func saveTodayScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		var req SaveScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sched, err := svc.SaveToday(r.Context(), doctorID, schedule.Window{
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			TotalSlots: req.TotalSlots,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(sched))
	}
}

func getTodayScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		sched, err := svc.GetToday(r.Context(), doctorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(sched))
	}
}

func getScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		sched, err := svc.GetForDay(r.Context(), doctorID, chi.URLParam(r, "date"))
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(sched))
	}
}

func deleteTodayScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteToday(r.Context(), doctorID); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listUpcomingSchedulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		scheds, err := svc.ListUpcoming(r.Context(), doctorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]ScheduleResponse, 0, len(scheds))
		for i := range scheds {
			out = append(out, toScheduleResponse(&scheds[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func bulkSaveSchedulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		var req BulkScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Schedules) == 0 {
			writeError(w, http.StatusBadRequest, "empty_batch", "schedules must not be empty")
			return
		}

		entries := make([]schedule.DayWindow, 0, len(req.Schedules))
		for _, e := range req.Schedules {
			entries = append(entries, schedule.DayWindow{
				Date: e.Date,
				Window: schedule.Window{
					StartTime:  e.StartTime,
					EndTime:    e.EndTime,
					TotalSlots: e.TotalSlots,
				},
			})
		}

		report, err := svc.SaveUpcoming(r.Context(), doctorID, entries)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := BulkScheduleResponse{Errors: report.Errors}
		for i := range report.Saved {
			resp.Saved = append(resp.Saved, toScheduleResponse(&report.Saved[i]))
		}

		// Partial failure is reported, not masked.
		status := http.StatusOK
		if len(report.Errors) > 0 {
			status = http.StatusMultiStatus
		}
		writeJSON(w, status, resp)
	}
}

func deleteScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteForDay(r.Context(), doctorID, chi.URLParam(r, "date")); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func scheduleHistoryHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		scheds, total, err := svc.History(r.Context(), doctorID, page, limit)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := ScheduleHistoryResponse{Total: total, Page: page, Limit: limit}
		if resp.Page < 1 {
			resp.Page = 1
		}
		if resp.Limit <= 0 {
			resp.Limit = 10
		}
		for i := range scheds {
			resp.Schedules = append(resp.Schedules, toScheduleResponse(&scheds[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func checkSchedulesExistHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		raw := r.URL.Query().Get("dates")
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing_dates", "dates query parameter is required")
			return
		}

		summary, err := svc.CheckExists(r.Context(), doctorID, strings.Split(raw, ","))
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	var short *schedule.SlotTooShortError
	switch {
	case errors.Is(err, schedule.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, schedule.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, schedule.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, schedule.ErrInvalidSlotCount):
		writeError(w, http.StatusBadRequest, "invalid_slot_count", err.Error())
	case errors.As(err, &short):
		writeError(w, http.StatusBadRequest, "slot_too_short", short.Error())
	case errors.Is(err, schedule.ErrSlotTooShort):
		writeError(w, http.StatusBadRequest, "slot_too_short", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
