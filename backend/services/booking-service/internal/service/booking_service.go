package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/booking-service/internal/cache"
	"evcharge/backend/services/booking-service/internal/clients"
	"evcharge/backend/services/booking-service/internal/models"
	"evcharge/backend/services/booking-service/internal/repository"
	"evcharge/backend/services/booking-service/internal/slots"
)

const (
	defaultDuration   = 30
	maxDuration       = 480
	fallbackPrice     = 10.0
	minCheckoutTTL    = 30 * time.Minute
	cancellationLimit = time.Hour
)

// BookingRepository defines storage contract used by BookingService.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking, occupied []string) error
	OccupiedSlots(ctx context.Context, stationID int64, date string) ([]string, error)
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBySession(ctx context.Context, sessionID string) (*models.Booking, error)
	MarkPaid(ctx context.Context, id int64, paymentIntentID string) (*models.Booking, error)
	Cancel(ctx context.Context, id int64, paymentStatus string) (*models.Booking, error)
	SetStatus(ctx context.Context, id int64, status string) (*models.Booking, error)
	ListByUser(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	ExpirePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

// StationReader loads stations for booking.
type StationReader interface {
	GetByID(ctx context.Context, id int64) (*models.Station, error)
}

// PaymentGateway is the hosted checkout provider.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p clients.CheckoutParams) (*clients.CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (*clients.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, id string) error
	CreateRefund(ctx context.Context, paymentIntentID string) (*clients.Refund, error)
}

// AvailabilityCache stores free slot lists per station and date. Set only succeeds for lists
// computed under the current Generation.
type AvailabilityCache interface {
	Get(ctx context.Context, stationID int64, date string) ([]string, error)
	Generation(ctx context.Context, stationID int64, date string) (int64, error)
	Set(ctx context.Context, stationID int64, date string, gen int64, slots []string) error
	Invalidate(ctx context.Context, stationID int64, date string) error
}

// EventPublisher announces availability changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev cache.Event) error
}

// BookingConfig holds the tunables of BookingService.
type BookingConfig struct {
	StartHour   int
	EndHour     int
	StepMinutes int
	Currency    string
	ClientURL   string
	CheckoutTTL time.Duration
	// PendingGrace is added to CheckoutTTL before the janitor gives up on a pending booking.
	PendingGrace time.Duration
	Location     *time.Location
}

// CreateBookingInput is the payload of a booking request.
type CreateBookingInput struct {
	ChargerID string
	Date      string
	TimeSlot  string
	Duration  *int
}

// BookingPage is one page of a user's bookings.
type BookingPage struct {
	Bookings   []models.Booking
	Total      int
	TotalPages int
	Page       int
}

// BookingService runs the booking lifecycle: availability, checkout, payment, cancellation.
type BookingService struct {
	repo     BookingRepository
	stations StationReader
	payments PaymentGateway
	cache    AvailabilityCache
	events   EventPublisher
	metrics  *Metrics
	logger   *zap.Logger

	catalog []string
	step    int
	cfg     BookingConfig
	now     func() time.Time
}

// NewBookingService builds BookingService. cache, events and metrics may be nil.
func NewBookingService(
	repo BookingRepository,
	stations StationReader,
	payments PaymentGateway,
	availability AvailabilityCache,
	events EventPublisher,
	metrics *Metrics,
	cfg BookingConfig,
	logger *zap.Logger,
) *BookingService {
	if cfg.StartHour == 0 && cfg.EndHour == 0 {
		cfg.StartHour, cfg.EndHour = slots.DefaultStartHour, slots.DefaultEndHour
	}
	if cfg.StepMinutes <= 0 {
		cfg.StepMinutes = slots.DefaultStep
	}
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	if cfg.CheckoutTTL < minCheckoutTTL {
		cfg.CheckoutTTL = minCheckoutTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")

	return &BookingService{
		repo:     repo,
		stations: stations,
		payments: payments,
		cache:    availability,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		catalog:  slots.Generate(cfg.StartHour, cfg.EndHour, cfg.StepMinutes),
		step:     cfg.StepMinutes,
		cfg:      cfg,
		now:      time.Now,
	}
}

// AvailableSlots returns the catalog slots of the date not held by an active booking.
func (s *BookingService) AvailableSlots(ctx context.Context, stationID int64, date string) ([]string, error) {
	if _, err := slots.ParseDate(date); err != nil {
		return nil, ErrInvalidDate
	}
	if _, err := s.stations.GetByID(ctx, stationID); err != nil {
		return nil, mapStationErr(err)
	}

	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, stationID, date)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("availability cache read failed", zap.Int64("station_id", stationID), zap.Error(err))
		}
		gen, err = s.cache.Generation(ctx, stationID, date)
		cacheable = err == nil
	}

	occupied, err := s.repo.OccupiedSlots(ctx, stationID, date)
	if err != nil {
		return nil, err
	}
	free := subtract(s.catalog, occupied)

	if cacheable {
		if err := s.cache.Set(ctx, stationID, date, gen, free); err != nil {
			s.logger.Warn("availability cache write failed", zap.Int64("station_id", stationID), zap.Error(err))
		}
	}
	return free, nil
}

// Create reserves the slots of a booking and opens a checkout session for it.
// It returns the stored booking and the checkout URL.
func (s *BookingService) Create(ctx context.Context, user *auth.User, in CreateBookingInput) (*models.Booking, string, error) {
	in.ChargerID = strings.TrimSpace(in.ChargerID)
	in.Date = strings.TrimSpace(in.Date)
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	if in.ChargerID == "" || in.Date == "" || in.TimeSlot == "" {
		return nil, "", ErrMissingBookingInput
	}

	stationID, err := strconv.ParseInt(in.ChargerID, 10, 64)
	if err != nil || stationID <= 0 {
		return nil, "", ErrStationNotFound
	}
	station, err := s.stations.GetByID(ctx, stationID)
	if err != nil {
		return nil, "", mapStationErr(err)
	}
	if !station.Bookable() {
		return nil, "", ErrStationUnavailable
	}

	if _, err := slots.ParseDate(in.Date); err != nil {
		return nil, "", ErrInvalidDate
	}
	duration := defaultDuration
	if in.Duration != nil {
		duration = *in.Duration
	}
	if duration < 1 || duration > maxDuration {
		return nil, "", ErrInvalidDuration
	}

	span, err := slots.Span(s.catalog, in.TimeSlot, duration, s.step)
	switch {
	case errors.Is(err, slots.ErrUnknownSlot):
		return nil, "", ErrInvalidSlot
	case errors.Is(err, slots.ErrSpanOverflow):
		return nil, "", ErrSpanOverflow
	case err != nil:
		return nil, "", err
	}

	start, err := slots.StartTime(in.Date, in.TimeSlot, s.cfg.Location)
	if err != nil {
		return nil, "", ErrInvalidSlot
	}
	now := s.now()
	if start.Before(now) {
		return nil, "", ErrSlotInPast
	}

	occupied, err := s.repo.OccupiedSlots(ctx, stationID, in.Date)
	if err != nil {
		return nil, "", err
	}
	if overlaps(span, occupied) {
		s.metrics.incConflict()
		return nil, "", ErrSlotTaken
	}

	amountMinor := AmountMinor(duration, station.Power, station.PricePerKwh)
	session, err := s.payments.CreateCheckoutSession(ctx, clients.CheckoutParams{
		LineItems: []clients.LineItem{{
			Name:        "EV Charger – " + station.Name,
			Description: fmt.Sprintf("%s @ %s (%d min)", in.Date, in.TimeSlot, duration),
			Currency:    s.cfg.Currency,
			UnitAmount:  amountMinor,
			Quantity:    1,
		}},
		SuccessURL: s.cfg.ClientURL + "/booking/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.ClientURL + "/booking/cancel",
		Metadata: map[string]string{
			"userId":    strconv.FormatInt(user.ID, 10),
			"chargerId": strconv.FormatInt(stationID, 10),
			"date":      in.Date,
			"timeSlot":  in.TimeSlot,
			"duration":  strconv.Itoa(duration),
		},
		ExpiresAt: now.Add(s.cfg.CheckoutTTL),
	})
	if err != nil {
		s.logger.Error("create checkout session", zap.Int64("station_id", stationID), zap.Error(err))
		return nil, "", gatewayErr(err)
	}

	booking := &models.Booking{
		UserID:          user.ID,
		StationID:       &stationID,
		Date:            in.Date,
		TimeSlot:        in.TimeSlot,
		DurationMinutes: duration,
		TotalAmount:     float64(amountMinor) / 100,
		Currency:        s.cfg.Currency,
		PaymentStatus:   models.PaymentPending,
		BookingStatus:   models.BookingConfirmed,
		StripeSessionID: session.ID,
	}
	if err := s.repo.Create(ctx, booking, span); err != nil {
		s.expireSession(ctx, session.ID)
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			s.metrics.incConflict()
			return nil, "", ErrSlotTaken
		case errors.Is(err, repository.ErrStationNotFound):
			return nil, "", ErrStationNotFound
		}
		return nil, "", err
	}
	booking.Station = summary(station)

	s.availabilityChanged(ctx, stationID, in.Date)
	s.metrics.incCreated()
	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", user.ID),
		zap.Int64("station_id", stationID),
		zap.String("date", in.Date),
		zap.Strings("slots", span),
	)
	return booking, session.URL, nil
}

// VerifyPayment confirms a booking once its checkout session is paid. Repeated calls for an
// already confirmed booking return it unchanged. A payment that arrives for a cancelled booking
// is refunded and reported as ErrBookingNotPayable.
func (s *BookingService) VerifyPayment(ctx context.Context, sessionID string) (*models.Booking, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	session, err := s.payments.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("retrieve checkout session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, gatewayErr(err)
	}
	if session.PaymentStatus != "paid" {
		return nil, ErrPaymentIncomplete
	}

	booking, err := s.repo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, mapBookingErr(err)
	}
	if !awaitingPayment(booking) {
		return s.settlePaid(ctx, booking, session)
	}

	paid, err := s.repo.MarkPaid(ctx, booking.ID, session.PaymentIntent)
	if errors.Is(err, repository.ErrBookingNotPending) {
		// cancelled, expired or verified concurrently since the read above
		current, gerr := s.repo.GetByID(ctx, booking.ID)
		if gerr != nil {
			return nil, mapBookingErr(gerr)
		}
		return s.settlePaid(ctx, current, session)
	}
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.bookingChanged(ctx, paid)
	s.logger.Info("booking paid", zap.Int64("booking_id", paid.ID), zap.String("session_id", sessionID))
	return paid, nil
}

// settlePaid resolves a paid session whose booking no longer awaits payment.
func (s *BookingService) settlePaid(ctx context.Context, b *models.Booking, session *clients.CheckoutSession) (*models.Booking, error) {
	if b.BookingStatus != models.BookingCancelled && b.PaymentStatus == models.PaymentCompleted {
		return b, nil
	}
	if b.BookingStatus == models.BookingCancelled && !settledPayment(b.PaymentStatus) && session.PaymentIntent != "" {
		if err := s.refund(ctx, b.ID, session.PaymentIntent); err != nil {
			return nil, err
		}
		if _, err := s.repo.Cancel(ctx, b.ID, models.PaymentRefunded); err != nil {
			return nil, mapBookingErr(err)
		}
	}
	return nil, ErrBookingNotPayable
}

func awaitingPayment(b *models.Booking) bool {
	return b.BookingStatus != models.BookingCancelled &&
		(b.PaymentStatus == models.PaymentPending || b.PaymentStatus == models.PaymentFailed)
}

// settledPayment reports whether money already moved for the booking, either way.
func settledPayment(status string) bool {
	return status == models.PaymentCompleted || status == models.PaymentRefunded
}

// Get returns a booking visible to user: their own, or any for admins.
func (s *BookingService) Get(ctx context.Context, user *auth.User, id int64) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapBookingErr(err)
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// ListMine returns a page of the user's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, user *auth.User, status string, page, limit int) (*BookingPage, error) {
	page, limit = pageBounds(page, limit)
	bookings, total, err := s.repo.ListByUser(ctx, models.BookingFilter{
		UserID: user.ID,
		Status: strings.TrimSpace(status),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return &BookingPage{
		Bookings:   bookings,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
		Page:       page,
	}, nil
}

// Cancel cancels the user's booking, refunding a completed payment first and closing the
// checkout of a pending one.
func (s *BookingService) Cancel(ctx context.Context, user *auth.User, id int64) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapBookingErr(err)
	}
	if booking.UserID != user.ID {
		return nil, ErrBookingNotFound
	}
	if booking.BookingStatus == models.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	start, err := slots.StartTime(booking.Date, booking.TimeSlot, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", booking.ID, err)
	}
	if start.Sub(s.now()) < cancellationLimit {
		return nil, ErrTooLateToCancel
	}

	paymentStatus := booking.PaymentStatus
	switch {
	case paymentStatus == models.PaymentCompleted && booking.StripePaymentIntentID != "":
		if err := s.refund(ctx, booking.ID, booking.StripePaymentIntentID); err != nil {
			return nil, err
		}
		paymentStatus = models.PaymentRefunded
	case paymentStatus == models.PaymentPending && booking.StripeSessionID != "":
		paymentStatus, err = s.closeCheckout(ctx, booking)
		if err != nil {
			return nil, err
		}
	}

	cancelled, err := s.repo.Cancel(ctx, booking.ID, paymentStatus)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.bookingChanged(ctx, cancelled)
	s.logger.Info("booking cancelled", zap.Int64("booking_id", booking.ID), zap.Int64("user_id", user.ID))
	return cancelled, nil
}

// UpdateStatus sets a booking's status on behalf of an admin.
func (s *BookingService) UpdateStatus(ctx context.Context, user *auth.User, id int64, status string) (*models.Booking, error) {
	if !user.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if !validate.OneOf(status, models.BookingStatuses) {
		return nil, newError(ErrBadRequest, "Valid statuses: "+strings.Join(models.BookingStatuses, ", "))
	}

	booking, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.bookingChanged(ctx, booking)
	s.logger.Info("booking status updated", zap.Int64("booking_id", id), zap.String("status", status))
	return booking, nil
}

// ExpireStale cancels pending bookings whose checkout window has passed and returns how many were released.
func (s *BookingService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-(s.cfg.CheckoutTTL + s.cfg.PendingGrace))
	expired, err := s.repo.ExpirePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		s.bookingChanged(ctx, &expired[i])
	}
	if len(expired) > 0 {
		s.metrics.addExpired(len(expired))
		s.logger.Info("expired pending bookings", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// AmountMinor prices a booking in minor currency units: duration at the station's power,
// charged per kWh with a fallback rate for unpriced stations.
func AmountMinor(durationMinutes int, powerKW, pricePerKwh float64) int64 {
	kwh := float64(durationMinutes) / 60 * powerKW
	price := pricePerKwh
	if price <= 0 {
		price = fallbackPrice
	}
	return int64(math.Round(price * kwh * 100))
}

func (s *BookingService) bookingChanged(ctx context.Context, b *models.Booking) {
	if b == nil || b.StationID == nil {
		return
	}
	s.availabilityChanged(ctx, *b.StationID, b.Date)
}

func (s *BookingService) availabilityChanged(ctx context.Context, stationID int64, date string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, stationID, date); err != nil {
			s.logger.Warn("availability cache invalidation failed", zap.Int64("station_id", stationID), zap.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, cache.Event{StationID: stationID, Date: date}); err != nil {
			s.logger.Warn("availability event publish failed", zap.Int64("station_id", stationID), zap.Error(err))
		}
	}
}

// closeCheckout expires the open checkout of a pending booking so it can no longer be paid.
// When the session was paid in the meantime the payment is refunded instead.
func (s *BookingService) closeCheckout(ctx context.Context, b *models.Booking) (string, error) {
	expireErr := s.payments.ExpireCheckoutSession(ctx, b.StripeSessionID)
	if expireErr == nil {
		return b.PaymentStatus, nil
	}

	session, err := s.payments.RetrieveCheckoutSession(ctx, b.StripeSessionID)
	if err != nil {
		s.logger.Error("expire checkout session", zap.Int64("booking_id", b.ID), zap.Error(expireErr))
		return "", gatewayErr(expireErr)
	}
	switch {
	case session.PaymentStatus == "paid" && session.PaymentIntent != "":
		if err := s.refund(ctx, b.ID, session.PaymentIntent); err != nil {
			return "", err
		}
		return models.PaymentRefunded, nil
	case session.Status == "expired":
		return b.PaymentStatus, nil
	default:
		s.logger.Error("expire checkout session", zap.Int64("booking_id", b.ID), zap.Error(expireErr))
		return "", gatewayErr(expireErr)
	}
}

func (s *BookingService) refund(ctx context.Context, bookingID int64, paymentIntentID string) error {
	refund, err := s.payments.CreateRefund(ctx, paymentIntentID)
	if err != nil {
		s.logger.Error("refund booking", zap.Int64("booking_id", bookingID), zap.Error(err))
		return gatewayErr(err)
	}
	s.metrics.incRefund()
	s.logger.Info("booking refunded", zap.Int64("booking_id", bookingID), zap.String("refund_id", refund.ID))
	return nil
}

func (s *BookingService) expireSession(ctx context.Context, sessionID string) {
	if err := s.payments.ExpireCheckoutSession(ctx, sessionID); err != nil {
		s.logger.Warn("expire orphaned checkout session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func summary(st *models.Station) *models.StationSummary {
	return &models.StationSummary{
		ID:          st.ID,
		Name:        st.Name,
		Location:    st.Location,
		Type:        st.Type,
		Power:       st.Power,
		PricePerKwh: st.PricePerKwh,
	}
}

func subtract(catalog, taken []string) []string {
	held := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		held[t] = struct{}{}
	}
	free := make([]string, 0, len(catalog))
	for _, label := range catalog {
		if _, ok := held[label]; !ok {
			free = append(free, label)
		}
	}
	return free
}

func overlaps(span, taken []string) bool {
	held := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		held[t] = struct{}{}
	}
	for _, label := range span {
		if _, ok := held[label]; ok {
			return true
		}
	}
	return false
}

func gatewayErr(err error) error {
	return fmt.Errorf("%w: %v", ErrPaymentGateway, err)
}

func mapBookingErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return ErrBookingNotFound
	case errors.Is(err, repository.ErrSlotTaken):
		return ErrSlotTaken
	default:
		return err
	}
}
