package handlers

import (
	"context"
	"net/http"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/auth-service/internal/models"
	"evcharge/backend/services/auth-service/internal/service"
)

// AuthService is the account logic used by the handlers.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Profile(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, in service.ProfileInput) (*models.User, error)
}

// NewRegisterHandler handles POST /api/auth/register.
func NewRegisterHandler(svc AuthService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err, "")
			return
		}

		sess, err := svc.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			errs.Write(w, err, "Registration failed")
			return
		}
		writeSession(w, http.StatusCreated, sess)
	}
}

// NewLoginHandler handles POST /api/auth/login.
func NewLoginHandler(svc AuthService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err, "")
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			errs.Write(w, err, "Login failed")
			return
		}
		writeSession(w, http.StatusOK, sess)
	}
}

// NewProfileHandler handles GET /api/auth/profile.
func NewProfileHandler(svc AuthService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, _ := auth.UserFromContext(r.Context())
		if current == nil {
			errs.Write(w, service.ErrUserNotFound, "")
			return
		}

		user, err := svc.Profile(r.Context(), current.ID)
		if err != nil {
			errs.Write(w, err, "")
			return
		}
		httpx.Data(w, http.StatusOK, user)
	}
}

// NewUpdateProfileHandler handles PUT /api/auth/profile.
func NewUpdateProfileHandler(svc AuthService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		current, _ := auth.UserFromContext(r.Context())
		if current == nil {
			errs.Write(w, service.ErrUserNotFound, "")
			return
		}

		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err, "")
			return
		}

		user, err := svc.UpdateProfile(r.Context(), current.ID, service.ProfileInput{Name: req.Name, Email: req.Email})
		if err != nil {
			errs.Write(w, err, "Profile update failed")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Profile updated successfully",
			"data":    user,
		})
	}
}

func writeSession(w http.ResponseWriter, status int, sess *service.Session) {
	httpx.OK(w, status, map[string]interface{}{
		"token": sess.Token,
		"user":  sess.User,
	})
}
