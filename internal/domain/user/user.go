package user

import (
	"fmt"
	"strings"
	"time"
)

// User is an account mirrored from the external identity provider.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SyncRequest carries identity-provider fields to upsert.
type SyncRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	AvatarURL  string `json:"avatar_url"`
}

// Validate checks required fields.
func (r *SyncRequest) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("external_id is required")
	}
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("email is invalid")
	}
	return nil
}
