package domain

import "github.com/google/uuid"

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Principal is the resolved caller of a lifecycle operation.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// SystemPrincipal acts for background jobs such as the pending expiry sweep.
var SystemPrincipal = Principal{Role: RoleSystem}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSystem
}

// CanAccess reports whether p may read or mutate a resource owned by owner.
func (p Principal) CanAccess(owner uuid.UUID) bool {
	return p.IsAdmin() || (p.UserID != uuid.Nil && p.UserID == owner)
}
