package registry

import "github.com/google/uuid"

// GenerateConnectionId returns the opaque id assigned to a session when it opens.
func GenerateConnectionId() string {
	return uuid.NewString()
}
