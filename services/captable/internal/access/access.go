// Package access decides who may call which captable operation.
package access

import (
	"errors"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleShareholder Role = "shareholder"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleShareholder
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

// Principal is the verified caller. The zero value is anonymous.
type Principal struct {
	AccountID uuid.UUID
	Role      Role
}

func (p Principal) Anonymous() bool {
	return p.AccountID == uuid.Nil || !p.Role.Valid()
}

// ParsePrincipal builds a principal from token subject and role claims.
func ParsePrincipal(subject, role string) (Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return Principal{}, ErrUnauthenticated
	}
	r := Role(role)
	if !r.Valid() {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{AccountID: id, Role: r}, nil
}

func RequireRole(p Principal, role Role) error {
	if p.Anonymous() {
		return ErrUnauthenticated
	}
	if p.Role != role {
		return ErrForbidden
	}
	return nil
}

func RequireAdmin(p Principal) error {
	return RequireRole(p, RoleAdmin)
}

func RequireShareholder(p Principal) error {
	return RequireRole(p, RoleShareholder)
}

// RequireOwner passes only when the resource belongs to the caller's profile.
func RequireOwner(ownerProfileID, callerProfileID uuid.UUID) error {
	if ownerProfileID == uuid.Nil || ownerProfileID != callerProfileID {
		return ErrForbidden
	}
	return nil
}
