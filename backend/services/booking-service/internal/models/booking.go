package models

import "time"

// Booking statuses.
const (
	BookingConfirmed  = "confirmed"
	BookingInProgress = "in-progress"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// BookingStatuses are the values an admin may set.
var BookingStatuses = []string{BookingConfirmed, BookingCancelled, BookingCompleted, BookingInProgress}

// IsActive reports whether a booking in this state holds its slots.
func IsActive(bookingStatus, paymentStatus string) bool {
	switch bookingStatus {
	case BookingConfirmed, BookingInProgress:
	default:
		return false
	}
	return paymentStatus == PaymentPending || paymentStatus == PaymentCompleted
}

// StationSummary is the station view embedded in bookings.
type StationSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Type        string  `json:"type"`
	Power       float64 `json:"power"`
	PricePerKwh float64 `json:"pricePerKwh"`
}

// Booking is a reservation of consecutive slots on one station.
type Booking struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"userId"`
	StationID             *int64          `json:"chargerId"`
	Station               *StationSummary `json:"charger,omitempty"`
	Date                  string          `json:"date"`
	TimeSlot              string          `json:"timeSlot"`
	Slots                 []string        `json:"slots,omitempty"`
	DurationMinutes       int             `json:"duration"`
	TotalAmount           float64         `json:"totalAmount"`
	Currency              string          `json:"currency"`
	PaymentStatus         string          `json:"paymentStatus"`
	BookingStatus         string          `json:"bookingStatus"`
	StripeSessionID       string          `json:"stripeSessionId,omitempty"`
	StripePaymentIntentID string          `json:"stripePaymentIntentId,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Active reports whether the booking currently holds its slots.
func (b *Booking) Active() bool {
	return IsActive(b.BookingStatus, b.PaymentStatus)
}

// BookingFilter narrows a user's booking history.
type BookingFilter struct {
	UserID int64
	Status string
	Page   int
	Limit  int
}
