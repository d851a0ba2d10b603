package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names. The set is closed; roles are seeded at startup and never
// created by users.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// RoleNames lists the seeded roles from most to least privileged.
var RoleNames = []string{RoleOwner, RoleAdmin, RoleMember}

// Role is a named permission set persisted so members can reference it.
// The authoritative permission list lives in the authz table; Permissions is
// a copy written at seed time for clients that read roles directly.
type Role struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Permissions []string           `bson:"permissions" json:"permissions"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsValidRoleName reports whether name is one of the seeded role names.
func IsValidRoleName(name string) bool {
	for _, r := range RoleNames {
		if r == name {
			return true
		}
	}
	return false
}
