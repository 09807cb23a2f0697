package pipeline

import "github.com/google/uuid"

// NewID returns a job identifier. Version 7 UUIDs lead with a millisecond
// timestamp, so IDs sort by creation time.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
