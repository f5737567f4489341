package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"evcharge/backend/libs/auth"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/auth-service/internal/models"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

// UserRepository persists users in Postgres.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns repository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills generated columns.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query, args, err := psql.Insert("users").
		Columns("name", "email", "password_hash", "role").
		Values(user.Name, user.Email, user.PasswordHash, user.Role).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Create - build insert: %v", ErrBuildQuery, err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if libdb.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("%w: Create - insert: %v", ErrExecQuery, err)
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "GetByEmail", sq.Eq{"email": strings.ToLower(email)})
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "GetByID", sq.Eq{"id": id})
}

// FindAdmin returns the oldest admin account.
func (r *UserRepository) FindAdmin(ctx context.Context) (*models.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"role": auth.RoleAdmin}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindAdmin - build select: %v", ErrBuildQuery, err)
	}
	return scanUser(r.db.QueryRowContext(ctx, query, args...), "FindAdmin")
}

// UserByID implements auth.UserLoader.
func (r *UserRepository) UserByID(ctx context.Context, id int64) (*auth.User, error) {
	u, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auth.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, nil
}

// Update writes name and email back and refreshes updated_at.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query, args, err := psql.Update("users").
		Set("name", user.Name).
		Set("email", user.Email).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": user.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update - build update: %v", ErrBuildQuery, err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrUserNotFound
	case libdb.IsUniqueViolation(err):
		return ErrEmailTaken
	case err != nil:
		return fmt.Errorf("%w: Update - update: %v", ErrExecQuery, err)
	}
	return nil
}

// List returns users ordered by id, optionally filtered by role.
func (r *UserRepository) List(ctx context.Context, role string) ([]models.User, error) {
	builder := psql.Select(userColumns...).From("users").OrderBy("id")
	if role != "" {
		builder = builder.Where(sq.Eq{"role": role})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: List - scan: %v", ErrScanRow, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows: %v", ErrScanRow, err)
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, op string, where sq.Sqlizer) (*models.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select: %v", ErrBuildQuery, op, err)
	}
	return scanUser(r.db.QueryRowContext(ctx, query, args...), op)
}

func scanUser(row *sql.Row, op string) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan: %v", ErrScanRow, op, err)
	}
	return &u, nil
}
