package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultProjectEmoji is used when a project is created without one.
const DefaultProjectEmoji = "📊"

// Project groups tasks inside a workspace.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Emoji       string             `bson:"emoji" json:"emoji"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
