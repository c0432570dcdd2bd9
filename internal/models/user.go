package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application user.
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Avatar         *string   `json:"avatar,omitempty" db:"avatar"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the safe representation returned via APIs.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) ToPublicUser() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToParticipant projects the user into a conversation participant.
func (u *User) ToParticipant() Participant {
	return Participant{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// CreateUserRequest captures registration input.
type CreateUserRequest struct {
	Name     string  `json:"name" binding:"required,min=1,max=100"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	Avatar   *string `json:"avatar,omitempty" binding:"omitempty,max=2048"`
}

// LoginUserRequest captures login input.
type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}
