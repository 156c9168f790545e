package model

import "time"

// Staff roles.  Admins manage the fleet and finances; agents handle the
// rental desk (reservations, contracts, customers).
const (
    RoleAdmin = "ADMIN"
    RoleAgent = "AGENT"
)

// User is a back-office staff account.  Customers do not log in; they
// exist only as records managed by staff.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
