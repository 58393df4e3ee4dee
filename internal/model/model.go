// Package model holds the gorm-mapped tables of the service.
package model

import "github.com/google/uuid"

// ensureID assigns a random id to rows created without one.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
