package model

import "time"

// Role names carried in the JWT "role" claim.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the
// database.  Handlers define their own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or CUSTOMER.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Caller is the identity an AuthProvider hands to the engine.  A zero
// UserID means the request is unauthenticated.
type Caller struct {
	UserID uint64
	Role   string
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool { return c.UserID != 0 }

// IsAdmin reports whether the caller holds the ADMIN role.
func (c Caller) IsAdmin() bool { return c.Authenticated() && c.Role == RoleAdmin }
