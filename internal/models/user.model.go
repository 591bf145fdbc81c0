package models

import (
	"time"
)

type User struct {
	BaseUUIDModel
	DisplayName string  `gorm:"type:text"             json:"displayName"`
	Email       *string `gorm:"type:text;uniqueIndex" json:"email"`

	// Supabase integration fields. SupabaseUserID is the JWT subject and is
	// the stable identity every game row is scoped by, through users.id.
	SupabaseUserID string     `gorm:"column:supabase_user_id;type:text;uniqueIndex;not null" json:"-"`
	LastLoginAt    *time.Time `gorm:"type:timestamp"                                         json:"lastLoginAt,omitempty"`
}

// UserProfile represents public user profile information
type UserProfile struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Email       *string    `json:"email,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// ToProfile converts a User to a UserProfile (public information only)
func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
	}
}

// UpdateFromToken refreshes user information from validated token claims.
func (u *User) UpdateFromToken(email *string, now time.Time) {
	u.LastLoginAt = &now

	if email != nil && *email != "" {
		u.Email = email
		if u.DisplayName == "" {
			u.DisplayName = *email
		}
	}
}
