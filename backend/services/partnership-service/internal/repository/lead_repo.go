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
	"evcharge/backend/services/partnership-service/internal/models"
)

var leadColumns = []string{
	"p.id",
	"p.name",
	"p.company",
	"p.email",
	"p.phone",
	"p.property_type",
	"p.address",
	"p.parking_spaces",
	"p.timeline",
	"p.message",
	"p.agree_terms",
	"p.status",
	"p.priority",
	"p.source",
	"p.notes",
	"p.assigned_to",
	"COALESCE(u.name, '')",
	"COALESCE(u.email, '')",
	"p.follow_up_date",
	"p.ip_address",
	"p.user_agent",
	"p.created_at",
	"p.updated_at",
}

// LeadRepository stores partnership leads.
type LeadRepository struct {
	db *sql.DB
}

// NewLeadRepository returns repository instance.
func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts lead and fills its id and timestamps.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	var parking interface{}
	if lead.ParkingSpaces != nil {
		parking = *lead.ParkingSpaces
	}

	query, args, err := psql.Insert("partnership_leads").
		Columns(
			"name", "company", "email", "phone", "property_type", "address", "parking_spaces", "timeline",
			"message", "agree_terms", "status", "priority", "source", "ip_address", "user_agent",
		).
		Values(
			lead.Name, lead.Company, lead.Email, lead.Phone, lead.PropertyType, lead.Address, parking, lead.Timeline,
			lead.Message, lead.AgreeTerms, lead.Status, lead.Priority, lead.Source, lead.IPAddress, lead.UserAgent,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Create - build insert: %v", ErrBuildQuery, err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}
	return nil
}

// RecentByEmail returns the newest lead from email created at or after since.
func (r *LeadRepository) RecentByEmail(ctx context.Context, email string, since time.Time) (*models.Lead, error) {
	query, args, err := r.selectBase().
		Where(sq.Eq{"p.email": email}).
		Where(sq.GtOrEq{"p.created_at": since}).
		OrderBy("p.created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: RecentByEmail - build select: %v", ErrBuildQuery, err)
	}
	return r.one(ctx, "RecentByEmail", query, args)
}

// GetByID returns a lead with its assignee.
func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*models.Lead, error) {
	query, args, err := r.selectBase().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select: %v", ErrBuildQuery, err)
	}
	return r.one(ctx, "GetByID", query, args)
}

// List returns one page of leads and the total match count. A zero Limit returns every match.
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error) {
	where := leadWhere(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("partnership_leads p").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build count: %v", ErrBuildQuery, err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: List - count: %v", ErrExecQuery, err)
	}

	column := filter.SortColumn
	if column == "" {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	builder := r.selectBase().
		Where(where).
		OrderBy(fmt.Sprintf("p.%s %s", column, direction), "p.id "+direction)
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build select: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	leads := make([]models.Lead, 0, filter.Limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: List - scan lead: %v", ErrScanRow, err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: List - rows: %v", ErrScanRow, err)
	}
	return leads, total, nil
}

// Update applies changes and returns the fresh row.
func (r *LeadRepository) Update(ctx context.Context, id int64, changes models.LeadChanges) (*models.Lead, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("NOW()")}
	if changes.Status != nil {
		set["status"] = *changes.Status
	}
	if changes.Priority != nil {
		set["priority"] = *changes.Priority
	}
	if changes.Notes != nil {
		set["notes"] = *changes.Notes
	}
	if changes.FollowUpDate != nil {
		set["follow_up_date"] = *changes.FollowUpDate
	}
	if changes.AssignedTo != nil {
		set["assigned_to"] = *changes.AssignedTo
	}

	query, args, err := psql.Update("partnership_leads").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Update - build update: %v", ErrBuildQuery, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if libdb.IsForeignKeyViolation(err) {
		return nil, ErrAssigneeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Update - execute update: %v", ErrExecQuery, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("%w: Update - rows affected: %v", ErrExecQuery, err)
	} else if n == 0 {
		return nil, ErrLeadNotFound
	}
	return r.GetByID(ctx, id)
}

// Stats groups leads by status and property type and counts those created since recentSince.
func (r *LeadRepository) Stats(ctx context.Context, recentSince time.Time) (*models.LeadStats, error) {
	stats := &models.LeadStats{}

	var err error
	if stats.StatusStats, err = r.countBy(ctx, "status"); err != nil {
		return nil, err
	}
	if stats.PropertyTypeStats, err = r.countBy(ctx, "property_type"); err != nil {
		return nil, err
	}

	query, args, err := psql.Select().
		Column(sq.Expr("COUNT(*) FILTER (WHERE created_at >= ?)", recentSince)).
		Column("COUNT(*)").
		From("partnership_leads").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Stats - build totals: %v", ErrBuildQuery, err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.RecentSubmissions, &stats.TotalSubmissions); err != nil {
		return nil, fmt.Errorf("%w: Stats - totals: %v", ErrScanRow, err)
	}
	return stats, nil
}

func (r *LeadRepository) countBy(ctx context.Context, column string) ([]models.CountBy, error) {
	query, args, err := psql.Select(column, "COUNT(*)").
		From("partnership_leads").
		GroupBy(column).
		OrderBy("COUNT(*) DESC", column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Stats - build %s: %v", ErrBuildQuery, column, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: Stats - %s: %v", ErrExecQuery, column, err)
	}
	defer rows.Close()

	out := []models.CountBy{}
	for rows.Next() {
		var c models.CountBy
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("%w: Stats - scan %s: %v", ErrScanRow, column, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: Stats - rows %s: %v", ErrScanRow, column, err)
	}
	return out, nil
}

func (r *LeadRepository) selectBase() sq.SelectBuilder {
	return psql.Select(leadColumns...).
		From("partnership_leads p").
		LeftJoin("users u ON u.id = p.assigned_to")
}

func (r *LeadRepository) one(ctx context.Context, op, query string, args []interface{}) (*models.Lead, error) {
	lead, err := scanLead(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan lead: %v", ErrScanRow, op, err)
	}
	return lead, nil
}

func leadWhere(filter models.LeadFilter) sq.And {
	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"p.status": filter.Status})
	}
	if filter.PropertyType != "" {
		where = append(where, sq.Eq{"p.property_type": filter.PropertyType})
	}
	if filter.Priority != "" {
		where = append(where, sq.Eq{"p.priority": filter.Priority})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"p.name": pattern},
			sq.ILike{"p.company": pattern},
			sq.ILike{"p.email": pattern},
			sq.ILike{"p.address": pattern},
		})
	}
	return where
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead        models.Lead
		parking     sql.NullInt64
		assignedTo  sql.NullInt64
		name, email string
		followUp    sql.NullTime
	)
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Company,
		&lead.Email,
		&lead.Phone,
		&lead.PropertyType,
		&lead.Address,
		&parking,
		&lead.Timeline,
		&lead.Message,
		&lead.AgreeTerms,
		&lead.Status,
		&lead.Priority,
		&lead.Source,
		&lead.Notes,
		&assignedTo,
		&name,
		&email,
		&followUp,
		&lead.IPAddress,
		&lead.UserAgent,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if parking.Valid {
		n := int(parking.Int64)
		lead.ParkingSpaces = &n
	}
	if assignedTo.Valid {
		lead.AssignedTo = &models.Assignee{ID: assignedTo.Int64, Name: name, Email: email}
	}
	if followUp.Valid {
		t := followUp.Time
		lead.FollowUpDate = &t
	}
	return &lead, nil
}
