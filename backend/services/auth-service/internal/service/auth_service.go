package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/auth-service/internal/models"
	"evcharge/backend/services/auth-service/internal/password"
	"evcharge/backend/services/auth-service/internal/repository"
)

const (
	minPasswordLength = 6
	maxNameLength     = 50
)

// UserRepository defines storage contract used by the service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	FindAdmin(ctx context.Context) (*models.User, error)
	List(ctx context.Context, role string) ([]models.User, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileInput carries optional profile changes. Nil fields are left untouched.
type ProfileInput struct {
	Name  *string
	Email *string
}

// AdminInput describes the seeded admin account. Empty fields take defaults.
type AdminInput struct {
	Name     string
	Email    string
	Password string
}

// Session is a signed token together with its owner.
type Session struct {
	Token string
	User  *models.User
}

// AuthService contains registration, login and profile logic.
type AuthService struct {
	repo   UserRepository
	hasher password.Hasher
	tokens TokenIssuer
	logger *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(repo UserRepository, hasher password.Hasher, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a user account. The role is always user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	v := validate.New()
	v.Check(name != "", "name", "Please add a name")
	v.Check(len(name) <= maxNameLength, "name", "Name cannot be more than 50 characters")
	v.Check(validate.Email(email), "email", "Please add a valid email")
	v.Check(len(in.Password) >= minPasswordLength, "password", "Password must be at least 6 characters")
	if err := v.Err("Validation failed"); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err := s.create(ctx, name, email, in.Password, auth.RoleUser)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("email", user.Email))

	return s.session(user)
}

// Login authenticates a user and issues a token.
func (s *AuthService) Login(ctx context.Context, email, pass string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || pass == "" {
		return nil, newError(ErrBadRequest, "Please provide an email and password")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, pass); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.logger.Warn("stored password hash unreadable", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

// Profile returns the account for id.
func (s *AuthService) Profile(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile changes name and/or email. Emails stay unique.
func (s *AuthService) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*models.User, error) {
	if in.Name == nil && in.Email == nil {
		return nil, ErrNothingToUpdate
	}

	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	v := validate.New()
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		v.Check(name != "", "name", "Please add a name")
		v.Check(len(name) <= maxNameLength, "name", "Name cannot be more than 50 characters")
		user.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		v.Check(validate.Email(email), "email", "Please add a valid email")
		user.Email = email
	}
	if err := v.Err("Validation failed"); err != nil {
		return nil, err
	}

	switch err := s.repo.Update(ctx, user); {
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, ErrEmailInUse
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, err
	}
	return user, nil
}

// SeedAdmin creates the default admin unless an admin already exists.
// created reports whether a new account was written.
func (s *AuthService) SeedAdmin(ctx context.Context, in AdminInput) (user *models.User, created bool, err error) {
	existing, err := s.repo.FindAdmin(ctx)
	if err == nil {
		s.logger.Info("admin user already exists", zap.Int64("user_id", existing.ID), zap.String("email", existing.Email))
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	if in.Name == "" {
		in.Name = "Default Admin"
	}
	if in.Email == "" {
		in.Email = "admin@company.com"
	}
	if in.Password == "" {
		in.Password = "admin123456"
	}
	email := normalizeEmail(in.Email)
	if !validate.Email(email) {
		return nil, false, newError(ErrBadRequest, "Please add a valid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, false, newError(ErrBadRequest, "Password must be at least 6 characters")
	}

	user, err = s.create(ctx, in.Name, email, in.Password, auth.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("default admin created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return user, true, nil
}

// ListUsers returns all users, or only those holding role.
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	if role != "" && role != auth.RoleUser && role != auth.RoleAdmin {
		return nil, newError(ErrBadRequest, fmt.Sprintf("Unknown role %q", role))
	}
	return s.repo.List(ctx, role)
}

func (s *AuthService) create(ctx context.Context, name, email, pass, role string) (*models.User, error) {
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
