package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var (
	// ErrStationNotFound is returned when no station row matches.
	ErrStationNotFound = errors.New("repository: station not found")
	// ErrBookingNotFound is returned when no booking row matches.
	ErrBookingNotFound = errors.New("repository: booking not found")
	// ErrSlotTaken is returned when an active booking already holds one of the slots.
	ErrSlotTaken = errors.New("repository: slot already booked")
	// ErrBookingNotPending is returned by MarkPaid when the booking is cancelled or already paid.
	ErrBookingNotPending = errors.New("repository: booking is not awaiting payment")
	// ErrStationHasBookings is returned by Delete while active bookings reference the station.
	ErrStationHasBookings = errors.New("repository: station has active bookings")

	ErrBuildQuery = errors.New("repository: failed to build query")
	ErrExecQuery  = errors.New("repository: failed to execute query")
	ErrScanRow    = errors.New("repository: failed to scan row")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Row lock strengths for lockStation.
const (
	lockForUpdate = "FOR UPDATE"
	lockForShare  = "FOR SHARE"
)

func lockStationQuery(id int64, mode string) (string, []interface{}, error) {
	return psql.Select("id").From("stations").Where(sq.Eq{"id": id}).Suffix(mode).ToSql()
}

// lockStation row-locks the station until tx ends. Delete takes it FOR UPDATE and booking
// inserts FOR SHARE, so a station cannot disappear under a booking being written.
func lockStation(ctx context.Context, tx *sql.Tx, id int64, mode string) error {
	query, args, err := lockStationQuery(id, mode)
	if err != nil {
		return fmt.Errorf("%w: lockStation - build select: %v", ErrBuildQuery, err)
	}
	var got int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStationNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: lockStation - select: %v", ErrExecQuery, err)
	}
	return nil
}
