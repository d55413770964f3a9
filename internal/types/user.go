package types

import (
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/models"
)

type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	UsernameSlug string    `json:"username_slug"`
	Email        string    `json:"email"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		UsernameSlug: u.UsernameSlug,
		Email:        u.Email,
	}
}

// UserSummary is what other members get to see of a user.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

func NewUserSummaries(users []models.User) []UserSummary {
	out := make([]UserSummary, len(users))
	for i, u := range users {
		out[i] = UserSummary{ID: u.ID, Username: u.Username}
	}
	return out
}
