package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/booking-service/internal/models"
	"evcharge/backend/services/booking-service/internal/slots"
)

var bookingColumns = []string{
	"b.id",
	"b.user_id",
	"b.station_id",
	"b.booking_date",
	"b.time_slot",
	"b.duration_minutes",
	"b.total_amount",
	"b.currency",
	"b.payment_status",
	"b.booking_status",
	"COALESCE(b.stripe_session_id, '')",
	"COALESCE(b.stripe_payment_intent_id, '')",
	"b.created_at",
	"b.updated_at",
	"COALESCE((SELECT string_agg(bs.time_slot, ',' ORDER BY bs.time_slot) FROM booking_slots bs WHERE bs.booking_id = b.id), '')",
	"s.name",
	"s.location",
	"s.type",
	"s.power_kw",
	"s.price_per_kwh",
}

// active booking = confirmed|in-progress and pending|completed payment
var activeBooking = sq.And{
	sq.Eq{"b.booking_status": []string{models.BookingConfirmed, models.BookingInProgress}},
	sq.Eq{"b.payment_status": []string{models.PaymentPending, models.PaymentCompleted}},
}

// BookingRepository persists bookings and the slots they hold.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository returns repository instance.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking and one booking_slots row per occupied slot in a single transaction.
// ErrSlotTaken is returned when any slot is already held by an active booking, ErrStationNotFound
// when the station was deleted meanwhile.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking, occupied []string) error {
	return libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if b.StationID != nil {
			if err := lockStation(ctx, tx, *b.StationID, lockForShare); err != nil {
				return err
			}
		}

		query, args, err := psql.Insert("bookings").
			Columns(
				"user_id", "station_id", "booking_date", "time_slot", "duration_minutes", "total_amount",
				"currency", "payment_status", "booking_status", "stripe_session_id",
			).
			Values(
				b.UserID, b.StationID, b.Date, b.TimeSlot, b.DurationMinutes, b.TotalAmount,
				b.Currency, b.PaymentStatus, b.BookingStatus, nullString(b.StripeSessionID),
			).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: Create - build insert: %v", ErrBuildQuery, err)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return fmt.Errorf("%w: Create - insert booking: %v", ErrExecQuery, err)
		}

		if len(occupied) == 0 {
			return nil
		}
		ins := psql.Insert("booking_slots").Columns("booking_id", "station_id", "booking_date", "time_slot", "active")
		for _, label := range occupied {
			ins = ins.Values(b.ID, b.StationID, b.Date, label, b.Active())
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return fmt.Errorf("%w: Create - build slots insert: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if libdb.IsUniqueViolation(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("%w: Create - insert slots: %v", ErrExecQuery, err)
		}
		b.Slots = occupied
		return nil
	})
}

// OccupiedSlots returns the labels held by active bookings on the station and date.
func (r *BookingRepository) OccupiedSlots(ctx context.Context, stationID int64, date string) ([]string, error) {
	query, args, err := psql.Select("time_slot").
		From("booking_slots").
		Where(sq.Eq{"station_id": stationID, "booking_date": date, "active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: OccupiedSlots - build select: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: OccupiedSlots - query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("%w: OccupiedSlots - scan: %v", ErrScanRow, err)
		}
		out = append(out, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: OccupiedSlots - rows: %v", ErrScanRow, err)
	}
	return out, nil
}

// GetByID returns the booking with its station summary.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, r.db, sq.Eq{"b.id": id})
}

// GetBySession returns the booking created with the checkout session.
func (r *BookingRepository) GetBySession(ctx context.Context, sessionID string) (*models.Booking, error) {
	return getBooking(ctx, r.db, sq.Eq{"b.stripe_session_id": sessionID})
}

// MarkPaid completes payment for a booking still awaiting it. A cancelled or already paid
// booking is left untouched and ErrBookingNotPending returned.
func (r *BookingRepository) MarkPaid(ctx context.Context, id int64, paymentIntentID string) (*models.Booking, error) {
	b, err := r.transition(ctx, awaitingPayment(id), map[string]interface{}{
		"payment_status":           models.PaymentCompleted,
		"booking_status":           models.BookingConfirmed,
		"stripe_payment_intent_id": nullString(paymentIntentID),
	})
	if errors.Is(err, ErrBookingNotFound) {
		return nil, ErrBookingNotPending
	}
	return b, err
}

func awaitingPayment(id int64) sq.And {
	return sq.And{
		sq.Eq{"id": id},
		sq.Eq{"payment_status": []string{models.PaymentPending, models.PaymentFailed}},
		sq.NotEq{"booking_status": models.BookingCancelled},
	}
}

// Cancel marks the booking cancelled with the given payment status and releases its slots.
func (r *BookingRepository) Cancel(ctx context.Context, id int64, paymentStatus string) (*models.Booking, error) {
	return r.transition(ctx, sq.Eq{"id": id}, map[string]interface{}{
		"booking_status": models.BookingCancelled,
		"payment_status": paymentStatus,
	})
}

// SetStatus changes the booking status and re-synchronises slot occupancy.
func (r *BookingRepository) SetStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	return r.transition(ctx, sq.Eq{"id": id}, map[string]interface{}{"booking_status": status})
}

// transition updates the matched booking and sets its slots active flag to match the new state,
// all in one transaction.
func (r *BookingRepository) transition(ctx context.Context, match sq.Sqlizer, set map[string]interface{}) (*models.Booking, error) {
	var out *models.Booking
	err := libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		set["updated_at"] = sq.Expr("NOW()")
		query, args, err := psql.Update("bookings").
			SetMap(set).
			Where(match).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: transition - build update: %v", ErrBuildQuery, err)
		}

		var id int64
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: transition - update booking: %v", ErrExecQuery, err)
		}

		booking, err := getBooking(ctx, tx, sq.Eq{"b.id": id})
		if err != nil {
			return err
		}

		query, args, err = psql.Update("booking_slots").
			Set("active", booking.Active()).
			Where(sq.Eq{"booking_id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: transition - build slots update: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if libdb.IsUniqueViolation(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("%w: transition - update slots: %v", ErrExecQuery, err)
		}

		out = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns one page of the user's bookings, newest first, and the total count.
func (r *BookingRepository) ListByUser(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	where := sq.And{sq.Eq{"b.user_id": filter.UserID}}
	if filter.Status != "" {
		where = append(where, sq.Eq{"b.booking_status": filter.Status})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("bookings b").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ListByUser - build count: %v", ErrBuildQuery, err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: ListByUser - count: %v", ErrExecQuery, err)
	}

	query, args, err := selectBookings().
		Where(where).
		OrderBy("b.created_at DESC", "b.id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64((filter.Page - 1) * filter.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ListByUser - build select: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ListByUser - query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0, filter.Limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: ListByUser - scan: %v", ErrScanRow, err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: ListByUser - rows: %v", ErrScanRow, err)
	}
	return bookings, total, nil
}

// ExpirePending cancels active bookings still awaiting payment that were created before cutoff,
// releases their slots and returns them.
func (r *BookingRepository) ExpirePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var expired []models.Booking
	err := libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query, args, err := psql.Update("bookings").
			Set("booking_status", models.BookingCancelled).
			Set("payment_status", models.PaymentFailed).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.And{
				sq.Eq{"payment_status": models.PaymentPending},
				sq.Eq{"booking_status": []string{models.BookingConfirmed, models.BookingInProgress}},
				sq.Lt{"created_at": cutoff},
			}).
			Suffix("RETURNING id, user_id, station_id, booking_date, time_slot, COALESCE(stripe_session_id, '')").
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: ExpirePending - build update: %v", ErrBuildQuery, err)
		}

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%w: ExpirePending - update: %v", ErrExecQuery, err)
		}
		defer rows.Close()

		ids := make([]int64, 0)
		for rows.Next() {
			var (
				b         models.Booking
				stationID sql.NullInt64
				date      time.Time
			)
			if err := rows.Scan(&b.ID, &b.UserID, &stationID, &date, &b.TimeSlot, &b.StripeSessionID); err != nil {
				return fmt.Errorf("%w: ExpirePending - scan: %v", ErrScanRow, err)
			}
			if stationID.Valid {
				b.StationID = &stationID.Int64
			}
			b.Date = date.Format(slots.DateLayout)
			b.BookingStatus = models.BookingCancelled
			b.PaymentStatus = models.PaymentFailed
			expired = append(expired, b)
			ids = append(ids, b.ID)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: ExpirePending - rows: %v", ErrScanRow, err)
		}
		if len(ids) == 0 {
			return nil
		}

		query, args, err = psql.Update("booking_slots").
			Set("active", false).
			Where(sq.Eq{"booking_id": ids}).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: ExpirePending - build slots update: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: ExpirePending - release slots: %v", ErrExecQuery, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func selectBookings() sq.SelectBuilder {
	return psql.Select(bookingColumns...).
		From("bookings b").
		LeftJoin("stations s ON s.id = b.station_id")
}

func getBooking(ctx context.Context, db runner, where sq.Sqlizer) (*models.Booking, error) {
	query, args, err := selectBookings().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: getBooking - build select: %v", ErrBuildQuery, err)
	}
	b, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getBooking - scan: %v", ErrScanRow, err)
	}
	return b, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b           models.Booking
		stationID   sql.NullInt64
		date        time.Time
		slotList    string
		name, loc   sql.NullString
		typ         sql.NullString
		power, rate sql.NullFloat64
	)
	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&stationID,
		&date,
		&b.TimeSlot,
		&b.DurationMinutes,
		&b.TotalAmount,
		&b.Currency,
		&b.PaymentStatus,
		&b.BookingStatus,
		&b.StripeSessionID,
		&b.StripePaymentIntentID,
		&b.CreatedAt,
		&b.UpdatedAt,
		&slotList,
		&name,
		&loc,
		&typ,
		&power,
		&rate,
	); err != nil {
		return nil, err
	}

	b.Date = date.Format(slots.DateLayout)
	if slotList != "" {
		b.Slots = strings.Split(slotList, ",")
	}
	if stationID.Valid {
		id := stationID.Int64
		b.StationID = &id
		b.Station = &models.StationSummary{
			ID:          id,
			Name:        name.String,
			Location:    loc.String,
			Type:        typ.String,
			Power:       power.Float64,
			PricePerKwh: rate.Float64,
		}
	}
	return &b, nil
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
