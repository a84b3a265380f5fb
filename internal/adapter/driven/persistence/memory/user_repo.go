package memory

import (
	"context"
	"sync"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

type UserRepository struct {
	mu      sync.Mutex
	byID    map[domain.OwnerID]*domain.User
	byEmail map[string]domain.OwnerID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[domain.OwnerID]*domain.User),
		byEmail: make(map[string]domain.OwnerID),
	}
}

func (r *UserRepository) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	cp := *user
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepository) GetByID(_ context.Context, id domain.OwnerID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}
