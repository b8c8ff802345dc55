package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/internal/appointment"
	"github.com/carelink/clinic-booking/internal/metrics"
	"github.com/carelink/clinic-booking/internal/schedule"
)

func bookFromRequest(req BookAppointmentRequest, paymentRef string) (appointment.BookParams, string, bool) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return appointment.BookParams{}, "doctor_id must be a valid UUID", false
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return appointment.BookParams{}, "patient_id must be a valid UUID", false
	}
	return appointment.BookParams{
		DoctorID:   doctorID,
		PatientID:  patientID,
		Date:       req.Date,
		Time:       req.Time,
		TimeSlot:   req.TimeSlot,
		Reason:     req.Reason,
		Type:       req.Type,
		PaymentRef: paymentRef,
	}, "", true
}

func bookAppointmentHandler(svc *appointment.Service, bm *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params, detail, ok := bookFromRequest(req, "")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", detail)
			return
		}

		booked, err := svc.Book(r.Context(), params)
		if err != nil {
			bm.ObserveBooking(bookingOutcome(err))
			handleBookError(w, err)
			return
		}
		bm.ObserveBooking("booked")

		writeJSON(w, http.StatusCreated, toDetailResponse(booked))
	}
}

func confirmPaymentHandler(svc *appointment.Service, bm *metrics.BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.PaymentRef == "" {
			writeError(w, http.StatusBadRequest, "missing_payment_ref", "payment_ref is required")
			return
		}

		params, detail, ok := bookFromRequest(req.BookAppointmentRequest, req.PaymentRef)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", detail)
			return
		}

		booked, err := svc.Book(r.Context(), params)
		if err != nil {
			bm.ObserveBooking(bookingOutcome(err))
			handleBookError(w, err)
			return
		}
		bm.ObserveBooking("booked")

		writeJSON(w, http.StatusCreated, toDetailResponse(booked))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		detail, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func listPatientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		status := appointment.Status(r.URL.Query().Get("status"))
		upcoming := r.URL.Query().Get("upcoming") == "true"

		list, err := svc.ListForPatient(r.Context(), patientID, status, upcoming)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(list))
	}
}

func listDoctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		status := appointment.Status(r.URL.Query().Get("status"))

		list, err := svc.ListForDoctor(r.Context(), doctorID, date, status)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(list))
	}
}

func updateAppointmentStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, appointment.Status(req.Status), actor)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		var req CancelRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		appt, err := svc.Cancel(r.Context(), id, req.Reason, actor)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, req.NewDate, req.NewTime, req.Reason, actor)
		if err != nil {
			handleRescheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func toDetailResponses(list []appointment.Detail) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toDetailResponse(&list[i]))
	}
	return out
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		return "conflict"
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		return "contended"
	default:
		return "error"
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotADoctor):
		writeError(w, http.StatusBadRequest, "not_a_doctor", err.Error())
	case errors.Is(err, appointment.ErrDoctorOffline):
		writeError(w, http.StatusBadRequest, "doctor_offline", err.Error())
	case errors.Is(err, appointment.ErrNoScheduleForDate):
		writeError(w, http.StatusBadRequest, "no_schedule_for_date", err.Error())
	case errors.Is(err, appointment.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, "reason_required", err.Error())
	case errors.Is(err, appointment.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "invalid_type", err.Error())
	case errors.Is(err, schedule.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, schedule.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusBadRequest, "slot_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusBadRequest, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, schedule.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleRescheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrNoScheduleForDate):
		writeError(w, http.StatusBadRequest, "no_schedule_for_date", err.Error())
	case errors.Is(err, schedule.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusBadRequest, "slot_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusBadRequest, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		handleLifecycleError(w, err)
	}
}
