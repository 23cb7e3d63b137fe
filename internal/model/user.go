package model

import (
	"strings"
	"time"
)

// Role values stored in users.role and carried in the token's role claim.
// The platform has exactly two roles. Historical data sometimes spelled the
// non-admin role "user"; NormalizeRole folds that onto the canonical value
// at the boundary so only these two constants circulate internally.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// NormalizeRole maps any accepted role spelling onto a canonical role
// constant. Unknown or empty values default to RoleCustomer.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleCustomer, "user":
		return RoleCustomer
	default:
		return RoleCustomer
	}
}

// User represents an application user record as stored in the `users`
// table. The json tags are omitted because these structs are used by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name shown in order confirmations.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – canonical role name (admin or customer).
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
