package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/booking-service/internal/models"
	"evcharge/backend/services/booking-service/internal/service"
)

// BookingService is the booking lifecycle used by the handlers.
type BookingService interface {
	AvailableSlots(ctx context.Context, stationID int64, date string) ([]string, error)
	Create(ctx context.Context, user *auth.User, in service.CreateBookingInput) (*models.Booking, string, error)
	VerifyPayment(ctx context.Context, sessionID string) (*models.Booking, error)
	Get(ctx context.Context, user *auth.User, id int64) (*models.Booking, error)
	ListMine(ctx context.Context, user *auth.User, status string, page, limit int) (*service.BookingPage, error)
	Cancel(ctx context.Context, user *auth.User, id int64) (*models.Booking, error)
	UpdateStatus(ctx context.Context, user *auth.User, id int64, status string) (*models.Booking, error)
}

// flexID accepts an id sent as a JSON number or string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// NewAvailableSlotsHandler handles GET /api/bookings/available-slots/{chargerId}/{date}.
func NewAvailableSlotsHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, ok := pathID(r, "chargerId")
		if !ok {
			errs.Write(w, service.ErrStationNotFound)
			return
		}
		date := mux.Vars(r)["date"]

		free, err := bookings.AvailableSlots(r.Context(), stationID, date)
		if err != nil {
			errs.WriteWith(w, err, "Fetch slots failed")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"availableSlots": free,
			"date":           date,
			"chargerId":      stationID,
		})
	}
}

// NewCreateBookingHandler handles POST /api/bookings.
func NewCreateBookingHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		ChargerID flexID `json:"chargerId"`
		Date      string `json:"date"`
		TimeSlot  string `json:"timeSlot"`
		Duration  *int   `json:"duration"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err)
			return
		}
		user, _ := auth.UserFromContext(r.Context())

		booking, checkoutURL, err := bookings.Create(r.Context(), user, service.CreateBookingInput{
			ChargerID: string(req.ChargerID),
			Date:      req.Date,
			TimeSlot:  req.TimeSlot,
			Duration:  req.Duration,
		})
		if err != nil {
			errs.WriteWith(w, err, "Create booking failed")
			return
		}
		httpx.OK(w, http.StatusCreated, map[string]interface{}{
			"bookingId":   booking.ID,
			"checkoutUrl": checkoutURL,
		})
	}
}

// NewVerifyPaymentHandler handles POST /api/bookings/verify-payment.
func NewVerifyPaymentHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		SessionID string `json:"sessionId"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err)
			return
		}

		booking, err := bookings.VerifyPayment(r.Context(), req.SessionID)
		if err != nil {
			errs.WriteWith(w, err, "Verification failed")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{"booking": booking})
	}
}

// NewMyBookingsHandler handles GET /api/bookings.
func NewMyBookingsHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())
		page, err := bookings.ListMine(r.Context(), user,
			r.URL.Query().Get("status"),
			httpx.IntQuery(r, "page", 1),
			httpx.IntQuery(r, "limit", 10),
		)
		if err != nil {
			errs.WriteWith(w, err, "Fetch failed")
			return
		}

		list := page.Bookings
		if list == nil {
			list = []models.Booking{}
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"bookings":    list,
			"totalPages":  page.TotalPages,
			"currentPage": page.Page,
			"total":       page.Total,
		})
	}
}

// NewGetBookingHandler handles GET /api/bookings/{id}.
func NewGetBookingHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrBookingNotFound)
			return
		}
		user, _ := auth.UserFromContext(r.Context())

		booking, err := bookings.Get(r.Context(), user, id)
		if err != nil {
			errs.Write(w, err)
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{"booking": booking})
	}
}

// NewCancelBookingHandler handles PATCH /api/bookings/{id}/cancel.
func NewCancelBookingHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrBookingNotFound)
			return
		}
		user, _ := auth.UserFromContext(r.Context())

		booking, err := bookings.Cancel(r.Context(), user, id)
		if err != nil {
			errs.WriteWith(w, err, "Cancel failed")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Booking cancelled",
			"booking": booking,
		})
	}
}

// NewUpdateBookingStatusHandler handles PATCH /api/bookings/{id}/status.
func NewUpdateBookingStatusHandler(bookings BookingService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrBookingNotFound)
			return
		}
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err)
			return
		}
		user, _ := auth.UserFromContext(r.Context())

		booking, err := bookings.UpdateStatus(r.Context(), user, id, req.Status)
		if err != nil {
			errs.WriteWith(w, err, "Status update failed")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": fmt.Sprintf("Status updated to %s", req.Status),
			"booking": booking,
		})
	}
}
