package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/internal/appointment"
	"github.com/carelink/clinic-booking/internal/schedule"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	TimeSlot  string `json:"time_slot,omitempty"`
	Reason    string `json:"reason"`
	Type      string `json:"type,omitempty"`
}

// PaymentConfirmRequest is the opaque payment-confirmed event. Verification
// happened upstream; the booking path is identical to the direct one.
type PaymentConfirmRequest struct {
	PaymentRef string `json:"payment_ref"`
	BookAppointmentRequest
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
	Reason  string `json:"reason,omitempty"`
}

type PartyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Specialization *string   `json:"specialization,omitempty"`
}

type RescheduleEntryResponse struct {
	OldDate       string    `json:"old_date"`
	OldTime       string    `json:"old_time"`
	NewDate       string    `json:"new_date"`
	NewTime       string    `json:"new_time"`
	Reason        string    `json:"reason,omitempty"`
	RescheduledBy uuid.UUID `json:"rescheduled_by"`
	RescheduledAt time.Time `json:"rescheduled_at"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	PatientID          uuid.UUID                 `json:"patient_id"`
	DoctorID           uuid.UUID                 `json:"doctor_id"`
	Date               string                    `json:"date"`
	Time               string                    `json:"time"`
	TimeSlot           string                    `json:"time_slot"`
	Duration           int                       `json:"duration"`
	Reason             string                    `json:"reason"`
	Type               string                    `json:"type"`
	Status             string                    `json:"status"`
	CancellationReason *string                   `json:"cancellation_reason,omitempty"`
	CancelledBy        *string                   `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time                `json:"cancelled_at,omitempty"`
	Doctor             *PartyResponse            `json:"doctor,omitempty"`
	Patient            *PartyResponse            `json:"patient,omitempty"`
	RescheduleHistory  []RescheduleEntryResponse `json:"reschedule_history,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		Date:               schedule.DayString(a.Date),
		Time:               a.Time,
		TimeSlot:           a.TimeSlot,
		Duration:           a.Duration,
		Reason:             a.Reason,
		Type:               a.Type,
		Status:             string(a.Status),
		CancellationReason: a.CancellationReason,
		CancelledBy:        a.CancelledBy,
		CancelledAt:        a.CancelledAt,
		CreatedAt:          a.CreatedAt,
	}
}

func toParty(p appointment.PartySummary) *PartyResponse {
	return &PartyResponse{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Specialization: p.Specialization,
	}
}

func toDetailResponse(d *appointment.Detail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	resp.Doctor = toParty(d.Doctor)
	resp.Patient = toParty(d.Patient)
	for _, e := range d.RescheduleHistory {
		resp.RescheduleHistory = append(resp.RescheduleHistory, RescheduleEntryResponse{
			OldDate:       schedule.DayString(e.OldDate),
			OldTime:       e.OldTime,
			NewDate:       schedule.DayString(e.NewDate),
			NewTime:       e.NewTime,
			Reason:        e.Reason,
			RescheduledBy: e.RescheduledBy,
			RescheduledAt: e.RescheduledAt,
		})
	}
	return resp
}

type SaveScheduleRequest struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	TotalSlots int    `json:"total_slots,omitempty"`
}

type BulkScheduleEntry struct {
	Date string `json:"date"`
	SaveScheduleRequest
}

type BulkScheduleRequest struct {
	Schedules []BulkScheduleEntry `json:"schedules"`
}

type BulkScheduleResponse struct {
	Saved  []ScheduleResponse        `json:"saved"`
	Errors []schedule.BulkEntryError `json:"errors,omitempty"`
}

type SlotResponse struct {
	ID         uuid.UUID  `json:"id"`
	SlotNumber int        `json:"slot_number"`
	StartTime  string     `json:"start_time"`
	EndTime    string     `json:"end_time"`
	Duration   int        `json:"duration"`
	Status     string     `json:"status"`
	IsBooked   bool       `json:"is_booked"`
	PatientID  *uuid.UUID `json:"patient_id,omitempty"`
}

type ScheduleResponse struct {
	ID           uuid.UUID      `json:"id"`
	DoctorID     uuid.UUID      `json:"doctor_id"`
	Date         string         `json:"date"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
	TotalSlots   int            `json:"total_slots"`
	SlotDuration int            `json:"slot_duration"`
	IsActive     bool           `json:"is_active"`
	Slots        []SlotResponse `json:"slots,omitempty"`
}

func toScheduleResponse(s *schedule.Schedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:           s.ID,
		DoctorID:     s.DoctorID,
		Date:         schedule.DayString(s.Date),
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		TotalSlots:   s.TotalSlots,
		SlotDuration: s.SlotDuration,
		IsActive:     s.IsActive,
	}
	for _, sl := range s.Slots {
		resp.Slots = append(resp.Slots, SlotResponse{
			ID:         sl.ID,
			SlotNumber: sl.SlotNumber,
			StartTime:  sl.StartTime,
			EndTime:    sl.EndTime,
			Duration:   sl.Duration,
			Status:     string(sl.Status),
			IsBooked:   sl.IsBooked,
			PatientID:  sl.PatientID,
		})
	}
	return resp
}

type ScheduleHistoryResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

type CreateNotificationRequest struct {
	RecipientID string `json:"recipient_id"`
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message"`
}
