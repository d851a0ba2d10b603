// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// State is an OAuth2 state token stored for CSRF protection between the
// redirect to the provider and the callback.
type State struct {
	State     string    `bson:"state"`
	ReturnURL string    `bson:"return_url,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens in MongoDB. Indexes (unique state,
// TTL on expires_at) are created by indexes.EnsureAll.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("oauth_states"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Save stores a state token with the given expiration time and an optional
// frontend URL to return to.
func (s *Store) Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error {
	_, err := s.c.InsertOne(ctx, State{
		State:     state,
		ReturnURL: returnURL,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now(),
	})
	return err
}

// Consume checks that state exists and has not expired. A valid token is
// deleted (one-time use) and its return URL is returned.
func (s *Store) Consume(ctx context.Context, state string) (returnURL string, valid bool, err error) {
	var st State
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.ReturnURL, true, nil
}

// CleanupExpired removes expired state tokens. The TTL index does the same
// work lazily; the cleanup worker calls this on a schedule.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
