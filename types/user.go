package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the marketplace.
// It contains identity, role, approval state, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`

	// Name is the user's display name. Reviews capture it at write time.
	Name string `json:"name" bson:"name"`

	// Email is the user's unique, lower-cased email address.
	Email string `json:"email" bson:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"password_hash,omitempty"`

	// Role indicates what the user may do (student, instructor, admin).
	Role Role `json:"role" bson:"role"`

	// IsApproved marks an instructor as approved by an admin.
	IsApproved bool `json:"isApproved" bson:"is_approved"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}
