package auth

import "github.com/bastianns/tubes-lasti-t08/internal/users"

// LoginRequest carries staff credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries a freshly minted access token.
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	User        users.UserResponse `json:"user"`
}
