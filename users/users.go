package users

import (
	"encoding/json"
	"slices"
	"strings"
)

// RoleType represents a portal role. Role assignment is owned by the backend;
// the client only reads roles to decide what to show.
type RoleType string

const (
	RoleAdmin     RoleType = "admin"      // Can manage users and verify payments
	RoleTreasurer RoleType = "tesorero"   // Can verify payments and view every debt
	RolePlayer    RoleType = "jugador"    // Regular team member
	RoleCoach     RoleType = "entrenador" // Can create calendar events
)

// User is the identity record returned by the backend session endpoints
type User struct {
	ID        string     `json:"id,omitempty"`      // Backend identifier, when provided
	Email     string     `json:"email,omitempty"`   // Google account email, also remembered for silent login
	Name      string     `json:"name,omitempty"`    // Display name
	AvatarURL string     `json:"picture,omitempty"` // Profile picture URL
	Roles     []RoleType `json:"roles,omitempty"`   // Role set granted by the backend
}

// UnmarshalJSON accepts roles either as a list or as a single "role" string,
// both of which the backend has emitted.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		Role   string `json:"role,omitempty"`
		Avatar string `json:"avatar,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if aux.Role != "" && !u.HasRole(RoleType(aux.Role)) {
		u.Roles = append(u.Roles, RoleType(aux.Role))
	}
	if u.AvatarURL == "" {
		u.AvatarURL = aux.Avatar
	}
	return nil
}

// HasRole reports whether the user carries role (case-insensitive)
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	return slices.ContainsFunc(u.Roles, func(r RoleType) bool {
		return strings.EqualFold(string(r), string(role))
	})
}

// IsAdmin returns true if the user has admin privileges
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// CanVerifyPayments is true for admins and treasurers
func (u *User) CanVerifyPayments() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleTreasurer)
}

// Clone returns a deep copy so callers never share the store's record
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}
