// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the signed-in user's name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "", NilObjectID, false. Callers can trust that ok=true means an
// authenticated user with a valid ObjectID.
//
// Roles are per workspace, so they are not part of the request identity;
// services resolve them through memberpolicy.
func UserCtx(r *http.Request) (name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "", primitive.NilObjectID, false
	}
	return user.Name, userID, true
}

// Caller returns the signed-in user's ID or an unauthenticated error.
func Caller(r *http.Request) (primitive.ObjectID, error) {
	_, userID, ok := UserCtx(r)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthenticated("Unauthorized. Please log in.")
	}
	return userID, nil
}
