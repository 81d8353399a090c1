package user

import "time"

// ProfileDTO is the API shape for the current user, points balance included.
type ProfileDTO struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	IsActive      bool      `json:"is_active"`
	PointsBalance int64     `json:"points_balance"`
	Permissions   []string  `json:"permissions,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func ToProfile(u *User) ProfileDTO {
	return ProfileDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		IsActive:      u.IsActive,
		PointsBalance: u.PointsBalance,
		Permissions:   u.Permissions,
		CreatedAt:     u.CreatedAt,
	}
}
