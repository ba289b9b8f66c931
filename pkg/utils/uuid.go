package utils

import "github.com/google/uuid"

// NewSnapshotID returns a random RFC 4122 v4 identifier for an index snapshot.
func NewSnapshotID() string {
	return uuid.NewString()
}
