package models

import (
	"time"
)

type Link struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Slug      string    `json:"slug"`
	TargetURL string    `json:"target_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateLinkInput struct {
	Slug      string `json:"slug"`
	TargetURL string `json:"target_url"`
}

// UpdateLinkInput carries a partial update; nil fields are left unchanged.
type UpdateLinkInput struct {
	Slug      *string `json:"slug,omitempty"`
	TargetURL *string `json:"target_url,omitempty"`
}
