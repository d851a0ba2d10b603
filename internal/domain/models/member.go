package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member records that a user belongs to a workspace with a role.
// (UserID, WorkspaceID) is unique.
type Member struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspaceId"`
	RoleID      primitive.ObjectID `bson:"role_id" json:"role"`
	JoinedAt    time.Time          `bson:"joined_at" json:"joinedAt"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// MemberView is a member joined with its user summary and role, as returned
// by workspace member listings.
type MemberView struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspaceId"`
	User        UserSummary        `bson:"user" json:"userId"`
	Role        Role               `bson:"role" json:"role"`
	JoinedAt    time.Time          `bson:"joined_at" json:"joinedAt"`
}
