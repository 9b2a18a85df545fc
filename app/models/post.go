package models

import (
	"errors"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		return errors.New("updated_at cannot precede created_at")
	}

	return nil
}

// BeforeCreate stamps both timestamps with now unless already set.
func (p *Post) BeforeCreate(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
}

// Touch records a modification at now.
func (p *Post) Touch(now time.Time) {
	if now.Before(p.CreatedAt) {
		now = p.CreatedAt
	}
	p.UpdatedAt = now
}

// IsPublished reports whether the post is visible to the public.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// OwnedBy reports whether userID authored the post.
func (p *Post) OwnedBy(userID int) bool {
	return userID != 0 && p.AuthorID == userID
}

// Clone returns a copy of the post without its loaded comments.
func (p *Post) Clone() *Post {
	c := *p
	c.Comments = nil
	return &c
}
