package authz

import "github.com/dalemusser/taskhub/internal/app/system/apperr"

// Guard returns nil when every required permission is granted to role, and
// the uniform forbidden error otherwise. An empty requirement list always
// passes. Guard performs no I/O.
func Guard(role string, required ...Permission) error {
	granted := rolePermissions[role]
	for _, p := range required {
		if _, ok := granted[p]; !ok {
			return apperr.Forbidden()
		}
	}
	return nil
}

// Allowed is the boolean form of Guard.
func Allowed(role string, required ...Permission) bool {
	return Guard(role, required...) == nil
}
