package entity

import "fmt"

// Sender represents one outbound LinkedIn account tracked by the pipeline.
// The numeric ID is authoritative when known; the display name is the
// fallback key used to locate the sender inside a destination sheet.
type Sender struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Client string `json:"client,omitempty"` // client/group assignment, may be empty
}

// DisplayName returns the configured name or a stable fallback.
func (s Sender) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Sender %d", s.ID)
}
