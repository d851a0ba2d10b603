// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a person who can sign in. A user belongs to workspaces through
// Member records, never directly.
//
// NOTE:
//   - Email is optional: external identities may arrive without one.
//   - PasswordHash is only present for email/password accounts and is never
//     serialized to clients.
type User struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Name             string              `bson:"name" json:"name"`
	Email            *string             `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash     *string             `bson:"password_hash,omitempty" json:"-"`
	ProfilePicture   *string             `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
	CurrentWorkspace *primitive.ObjectID `bson:"current_workspace,omitempty" json:"currentWorkspace,omitempty"`
	IsActive         bool                `bson:"is_active" json:"isActive"`
	LastLogin        *time.Time          `bson:"last_login,omitempty" json:"lastLogin,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// EmailOrEmpty returns the user's email or "" when none is recorded.
func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// UserSummary is the public projection of a user embedded in member and
// task listings.
type UserSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Email          *string            `bson:"email,omitempty" json:"email,omitempty"`
	ProfilePicture *string            `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
}
