package domain

import "time"

// User represents an account able to authenticate against the platform.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Active
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal builds the request identity for u.
func (u *User) Principal() *Principal {
	if u == nil {
		return nil
	}
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return &Principal{ID: u.ID, Username: u.Username, Roles: roles}
}

// Touch refreshes UpdatedAt and fills CreatedAt on first save.
func (u *User) Touch(now time.Time) {
	u.UpdatedAt = now
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
}

// UserStats aggregates account counts.
type UserStats struct {
	TotalUsers    int `json:"totalUsers"`
	ActiveUsers   int `json:"activeUsers"`
	InactiveUsers int `json:"inactiveUsers"`
}
