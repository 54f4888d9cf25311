package model

import "time"

// Role names form a closed set. Every member references exactly one of
// these; the rows are seeded at startup.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
	RoleSupport  = "SUPPORT"
)

// Member represents a row in the `members` table. PasswordHash holds the
// bcrypt digest; the raw password is never persisted. A member is soft
// deleted by clearing IsActive and stamping DeletedAt, the row itself is
// never removed.
type Member struct {
	ID           uint64     // members.id
	Username     string     // members.username (unique among active members)
	Email        string     // members.email (unique among active members)
	PasswordHash string     // members.password_hash
	FullName     string     // members.full_name
	Phone        string     // members.phone
	Address      string     // members.address
	Gender       string     // members.gender
	ImageURL     string     // members.image_url
	RoleID       uint8      // members.role_id (references roles.id)
	RoleName     string     // roles.name, populated by joined queries
	IsActive     bool       // members.is_active
	CreatedAt    time.Time  // members.created_at
	UpdatedAt    time.Time  // members.updated_at
	DeletedAt    *time.Time // members.deleted_at (nullable)
}

// Role maps a small integer ID to a role name. The service layer treats
// roles as pure values; membership of a role is never traversed from here.
type Role struct {
	ID   uint8  // roles.id
	Name string // roles.name
}
