package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
)

// UserResponse is the public shape of a staff account.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// FromModel maps a persisted user into its public shape.
func FromModel(user *models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		LastLoginAt: user.LastLoginAt,
	}
}
