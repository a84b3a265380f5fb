package domain

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID           OwnerID   `gorm:"type:uuid;primaryKey" json:"user_id"`
	Email        string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (User) TableName() string { return "users" }

func NewUser(email, passwordHash string, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return &User{
		ID:           NewOwnerID(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}
