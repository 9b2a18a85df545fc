package services

import (
	"strings"

	"inkpost/app/models"
)

// Caller identifies who is invoking an operation. The zero value is an
// anonymous visitor.
type Caller struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// Anonymous is the caller of unauthenticated requests.
var Anonymous = Caller{}

// IsAuthenticated reports whether the caller is a signed-in user.
func (c Caller) IsAuthenticated() bool {
	return c.UserID > 0
}

// PostInput is the editable part of a post.
type PostInput struct {
	Title  string        `json:"title" form:"title" validate:"required,max=200"`
	Slug   string        `json:"slug" form:"slug" validate:"omitempty,max=200,slug"`
	Body   string        `json:"body" form:"body" validate:"required"`
	Tags   string        `json:"tags" form:"tags" validate:"max=200"`
	Status models.Status `json:"status" form:"status" validate:"status"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Body = strings.TrimSpace(in.Body)
	in.Tags = strings.TrimSpace(in.Tags)
}

// CommentInput is the body of a new comment.
type CommentInput struct {
	Content string `json:"content" form:"content" validate:"required,max=1000"`
}

// RegisterInput is a sign-up request. Password2 must repeat Password1.
type RegisterInput struct {
	Username  string `json:"username" form:"username" validate:"required,min=3,max=150,username"`
	Password1 string `json:"password1" form:"password1" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" form:"password2" validate:"required,eqfield=Password1"`
}

// PostQuery filters the administrative post listing.
type PostQuery struct {
	Search string
	Status *models.Status
}

// CommentQuery filters the administrative comment listing.
type CommentQuery struct {
	Search string
	Active *bool
}
