package domain

import "fmt"

// Role identifies which dashboard a user works from.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
)

// ParseRole validates a raw role value read from the store or a token.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RolePatient, RoleDoctor, RoleStaff:
		return r, nil
	}
	return "", fmt.Errorf("%w: role %q", ErrUnknownEnum, raw)
}

// Profile is the identity/role record owned by the identity provider.
type Profile struct {
	UserID     string
	Name       string
	Role       Role
	Department *string
}
