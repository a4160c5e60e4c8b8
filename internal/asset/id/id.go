// Package id provides unique identifier generation for assets.
package id

import "github.com/google/uuid"

// Generate creates a new unique asset ID.
// Format: a random (version 4) UUID, e.g. 3f1c9a2e-5b7d-4c1e-9f0a-8d2b6e4c7a10
func Generate() string {
	return uuid.NewString()
}
