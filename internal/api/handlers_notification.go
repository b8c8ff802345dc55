package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/internal/notification"
)

func createNotificationHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateNotificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		recipientID, err := uuid.Parse(req.RecipientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recipient_id", "recipient_id must be a valid UUID")
			return
		}

		n, err := svc.Notify(r.Context(), recipientID, req.Type, req.Title, req.Message)
		if err != nil {
			handleNotificationError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

func listNotificationsHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		unreadOnly := r.URL.Query().Get("unread") == "true"
		list, err := svc.List(r.Context(), recipientID, unreadOnly)
		if err != nil {
			handleNotificationError(w, err)
			return
		}
		if list == nil {
			list = []notification.Notification{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func markNotificationReadHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}
		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		n, err := svc.MarkRead(r.Context(), id, actor)
		if err != nil {
			handleNotificationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

func handleNotificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notification.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	case errors.Is(err, notification.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "invalid_type", err.Error())
	case errors.Is(err, notification.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
