package domain

import "github.com/askhub/askhub-server/internal/docstore"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleUser is a regular member.
	RoleUser Role = "user"
	// RoleModerator may curate content.
	RoleModerator Role = "moderator"
	// RoleAdmin grants full administrative access.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is a provisioned account. The record id is the user id.
type User struct {
	ID            string             `json:"id"`
	Email         string             `json:"email"`
	Username      string             `json:"username"`
	DisplayName   string             `json:"displayName"`
	PhotoURL      *string            `json:"photoURL"`
	Bio           string             `json:"bio"`
	Role          Role               `json:"role"`
	Notifications []Notification     `json:"notifications"`
	CreatedAt     docstore.Timestamp `json:"createdAt"`
	UpdatedAt     docstore.Timestamp `json:"updatedAt"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// FindNotification returns the index of the notification with id, or -1.
func (u *User) FindNotification(id string) int {
	for i, n := range u.Notifications {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// UsernameClaim reserves a username. The record id is the lowercase
// username, so two claims on the same name collide.
type UsernameClaim struct {
	ID  string `json:"id"`
	UID string `json:"uid"`
}
