package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/booking-service/internal/models"
)

var stationColumns = []string{
	"s.id",
	"s.name",
	"s.location",
	"s.type",
	"s.connector_type",
	"s.power_kw",
	"s.status",
	"s.price_per_kwh",
	"s.latitude",
	"s.longitude",
	"s.amenities",
	"s.open_time",
	"s.close_time",
	"s.created_by",
	"COALESCE(u.name, '')",
	"COALESCE(u.email, '')",
	"s.created_at",
	"s.updated_at",
}

// StationRepository handles CRUD for the stations table.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository instance.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Create inserts a station and fills its id and timestamps.
func (r *StationRepository) Create(ctx context.Context, st *models.Station) error {
	amenities, err := json.Marshal(nonNil(st.Amenities))
	if err != nil {
		return fmt.Errorf("%w: Create - encode amenities: %v", ErrBuildQuery, err)
	}
	lat, lng := coords(st.Coordinates)

	query, args, err := psql.Insert("stations").
		Columns(
			"name", "location", "type", "connector_type", "power_kw", "status", "price_per_kwh",
			"latitude", "longitude", "amenities", "open_time", "close_time", "created_by",
		).
		Values(
			st.Name, st.Location, st.Type, st.ConnectorType, st.Power, st.Status, st.PricePerKwh,
			lat, lng, string(amenities), st.OperatingHours.Open, st.OperatingHours.Close, creatorID(st.CreatedBy),
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Create - build insert: %v", ErrBuildQuery, err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}
	return nil
}

// GetByID returns the station with its creator summary.
func (r *StationRepository) GetByID(ctx context.Context, id int64) (*models.Station, error) {
	query, args, err := r.selectBase().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select: %v", ErrBuildQuery, err)
	}

	st, err := scanStation(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan station: %v", ErrScanRow, err)
	}
	return st, nil
}

// Update overwrites every mutable column of st.
func (r *StationRepository) Update(ctx context.Context, st *models.Station) error {
	amenities, err := json.Marshal(nonNil(st.Amenities))
	if err != nil {
		return fmt.Errorf("%w: Update - encode amenities: %v", ErrBuildQuery, err)
	}
	lat, lng := coords(st.Coordinates)

	query, args, err := psql.Update("stations").
		SetMap(map[string]interface{}{
			"name":           st.Name,
			"location":       st.Location,
			"type":           st.Type,
			"connector_type": st.ConnectorType,
			"power_kw":       st.Power,
			"status":         st.Status,
			"price_per_kwh":  st.PricePerKwh,
			"latitude":       lat,
			"longitude":      lng,
			"amenities":      string(amenities),
			"open_time":      st.OperatingHours.Open,
			"close_time":     st.OperatingHours.Close,
			"updated_at":     sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": st.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update - build update: %v", ErrBuildQuery, err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStationNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: Update - execute update: %v", ErrExecQuery, err)
	}
	return nil
}

// UpdateStatus sets the operational status.
func (r *StationRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query, args, err := psql.Update("stations").
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update: %v", ErrBuildQuery, err)
	}
	return execOne(ctx, r.db, query, args, ErrStationNotFound)
}

// Delete removes the station unless an active booking references it. The check and the delete
// share one transaction holding the station row lock.
func (r *StationRepository) Delete(ctx context.Context, id int64) error {
	return libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockStation(ctx, tx, id, lockForUpdate); err != nil {
			return err
		}

		query, args, err := activeForStationQuery(id)
		if err != nil {
			return fmt.Errorf("%w: Delete - build count: %v", ErrBuildQuery, err)
		}
		var active int
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&active); err != nil {
			return fmt.Errorf("%w: Delete - count active: %v", ErrExecQuery, err)
		}
		if active > 0 {
			return ErrStationHasBookings
		}

		query, args, err = psql.Delete("stations").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("%w: Delete - build delete: %v", ErrBuildQuery, err)
		}
		return execOne(ctx, tx, query, args, ErrStationNotFound)
	})
}

func activeForStationQuery(id int64) (string, []interface{}, error) {
	return psql.Select("COUNT(*)").
		From("bookings b").
		Where(sq.And{sq.Eq{"b.station_id": id}, activeBooking}).
		ToSql()
}

// List returns one page of stations matching filter and the total match count.
func (r *StationRepository) List(ctx context.Context, filter models.StationFilter) ([]models.Station, int, error) {
	where := stationWhere(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("stations s").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build count: %v", ErrBuildQuery, err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: List - count: %v", ErrExecQuery, err)
	}

	query, args, err := r.selectBase().
		Where(where).
		OrderBy("s.created_at DESC", "s.id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64((filter.Page - 1) * filter.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build select: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	stations := make([]models.Station, 0, filter.Limit)
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: List - scan station: %v", ErrScanRow, err)
		}
		stations = append(stations, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: List - rows: %v", ErrScanRow, err)
	}
	return stations, total, nil
}

func (r *StationRepository) selectBase() sq.SelectBuilder {
	return psql.Select(stationColumns...).
		From("stations s").
		LeftJoin("users u ON u.id = s.created_by")
}

func stationWhere(filter models.StationFilter) sq.And {
	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"s.status": filter.Status})
	}
	if filter.Type != "" {
		where = append(where, sq.Eq{"s.type": filter.Type})
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		where = append(where, sq.ILike{"s.location": "%" + escapeLike(loc) + "%"})
	}
	if filter.MinPower != nil {
		where = append(where, sq.GtOrEq{"s.power_kw": *filter.MinPower})
	}
	if filter.MaxPower != nil {
		where = append(where, sq.LtOrEq{"s.power_kw": *filter.MaxPower})
	}
	if box := filter.Box; box != nil {
		where = append(where,
			sq.GtOrEq{"s.latitude": box.MinLat},
			sq.LtOrEq{"s.latitude": box.MaxLat},
			sq.GtOrEq{"s.longitude": box.MinLng},
			sq.LtOrEq{"s.longitude": box.MaxLng},
		)
	}
	return where
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStation(row rowScanner) (*models.Station, error) {
	var (
		st          models.Station
		lat, lng    sql.NullFloat64
		amenities   []byte
		createdBy   sql.NullInt64
		name, email string
	)
	if err := row.Scan(
		&st.ID,
		&st.Name,
		&st.Location,
		&st.Type,
		&st.ConnectorType,
		&st.Power,
		&st.Status,
		&st.PricePerKwh,
		&lat,
		&lng,
		&amenities,
		&st.OperatingHours.Open,
		&st.OperatingHours.Close,
		&createdBy,
		&name,
		&email,
		&st.CreatedAt,
		&st.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		st.Coordinates = &models.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	st.Amenities = []string{}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &st.Amenities); err != nil {
			return nil, err
		}
	}
	if createdBy.Valid {
		st.CreatedBy = &models.Creator{ID: createdBy.Int64, Name: name, Email: email}
	}
	return &st, nil
}

func execOne(ctx context.Context, db runner, query string, args []interface{}, notFound error) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrExecQuery, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func coords(c *models.Coordinates) (lat, lng interface{}) {
	if c == nil {
		return nil, nil
	}
	return c.Latitude, c.Longitude
}

func creatorID(c *models.Creator) interface{} {
	if c == nil || c.ID == 0 {
		return nil
	}
	return c.ID
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
