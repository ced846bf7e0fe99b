package model

import "github.com/google/uuid"

// GenerateUUID creates a new UUID string for nodes whose source carries no IDs.
func GenerateUUID() string {
	return uuid.New().String()
}
