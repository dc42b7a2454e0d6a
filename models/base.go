package models

import (
	"github.com/google/uuid"
)

// newID returns id unchanged when set, otherwise a fresh UUIDv4 string.
func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
