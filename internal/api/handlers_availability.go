package api

import (
	"errors"
	"net/http"

	"github.com/carelink/clinic-booking/internal/availability"
	"github.com/carelink/clinic-booking/internal/schedule"
)

func listAvailableDoctorsHandler(resolver *availability.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := resolver.ListAvailableDoctors(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			if errors.Is(err, schedule.ErrInvalidDate) {
				writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
