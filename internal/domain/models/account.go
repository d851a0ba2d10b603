package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account providers.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Account links a user to one identity provider. The pair
// (Provider, ProviderID) is unique.
type Account struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Provider   string             `bson:"provider" json:"provider"`
	ProviderID string             `bson:"provider_id" json:"providerId"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsValidProvider reports whether p is a supported provider name.
func IsValidProvider(p string) bool {
	return p == ProviderEmail || p == ProviderGoogle
}
