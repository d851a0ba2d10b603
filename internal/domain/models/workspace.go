package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace is the tenant container. Projects, tasks and memberships all
// carry a workspace_id; the owner is the user that created it.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`

	Name        string `bson:"name" json:"name"`
	NameCI      string `bson:"name_ci" json:"-"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	Owner primitive.ObjectID `bson:"owner" json:"owner"`

	// InviteCode lets other users join as members. Unique across workspaces.
	InviteCode string `bson:"invite_code" json:"inviteCode"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsOwnedBy reports whether userID is the workspace owner.
func (w Workspace) IsOwnedBy(userID primitive.ObjectID) bool {
	return w.Owner == userID
}
