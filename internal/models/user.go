package models

import (
	"strings"
	"time"
)

// Role controls which ledger rules apply to an account
type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
)

// ManagementDept is the department whose members are created as managers
// when a create request does not name a role.
const ManagementDept = "management"

// Account represents a user that can send and receive dundies
type Account struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	Username     string    `json:"username" db:"username" example:"michael-scott"`
	Email        string    `json:"email" db:"email" example:"michael@dm.com"`
	Name         string    `json:"name" db:"name" example:"Michael Scott"`
	Dept         string    `json:"dept" db:"dept" example:"sales"`
	Currency     string    `json:"currency" db:"currency" example:"USD"`
	Avatar       *string   `json:"avatar,omitempty" db:"avatar"`
	Bio          *string   `json:"bio,omitempty" db:"bio"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsPrivileged reports whether the account is exempt from the balance check
func (a Account) IsPrivileged() bool {
	return a.Role == RoleManager
}

// DefaultRole is the role assigned at creation time when none is requested.
func DefaultRole(dept string) Role {
	if strings.EqualFold(strings.TrimSpace(dept), ManagementDept) {
		return RoleManager
	}
	return RoleMember
}

// GenerateUsername builds a slug username from a display name
func GenerateUsername(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
