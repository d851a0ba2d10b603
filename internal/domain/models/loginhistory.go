// internal/domain/models/loginhistory.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoginRecord captures a single successful sign-in. Records expire after
// LoginRecordRetention.
type LoginRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Provider  string             `bson:"provider" json:"provider"`
	IP        string             `bson:"ip" json:"ip"`
	UserAgent string             `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// LoginRecordRetention is the TTL of login_records.
const LoginRecordRetention = 90 * 24 * time.Hour
