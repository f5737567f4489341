package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"evcharge/backend/services/auth-service/internal/models"
	"evcharge/backend/services/auth-service/internal/repository"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
	err    error
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{nextID: 1, byID: make(map[int64]*models.User)}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
		if u.ID >= f.nextID {
			f.nextID = u.ID + 1
		}
	}
	return f
}

func (f *fakeUsers) emailTaken(email string, except int64) bool {
	for id, u := range f.byID {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.emailTaken(user.Email, 0) {
		return repository.ErrEmailTaken
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == strings.ToLower(email) {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	if f.emailTaken(user.Email, user.ID) {
		return repository.ErrEmailTaken
	}
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUsers) FindAdmin(_ context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var found *models.User
	for _, u := range f.byID {
		if u.Role == "admin" && (found == nil || u.ID < found.ID) {
			found = u
		}
	}
	if found == nil {
		return nil, repository.ErrUserNotFound
	}
	c := *found
	return &c, nil
}

func (f *fakeUsers) List(_ context.Context, role string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for id := int64(1); id < f.nextID; id++ {
		if u, ok := f.byID[id]; ok && (role == "" || u.Role == role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

// plainHasher stores "hashed:<password>" so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) {
	if p == "" {
		return "", errors.New("empty")
	}
	return "hashed:" + p, nil
}

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return fmt.Errorf("mismatch")
	}
	return nil
}

type stubTokens struct{}

func (stubTokens) GenerateToken(userID int64, role string) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, role), nil
}
