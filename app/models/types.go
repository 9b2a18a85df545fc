package models

import "time"

// Post is a blog article. Title and Slug are unique across all posts.
type Post struct {
	ID         int        `json:"id" gorm:"primaryKey;autoIncrement" validate:"gte=0"`
	Title      string     `json:"title" gorm:"size:200;not null;uniqueIndex" validate:"required,max=200"`
	Slug       string     `json:"slug" gorm:"size:200;not null;uniqueIndex" validate:"required,max=200,slug"`
	Body       string     `json:"body" gorm:"type:text;not null" validate:"required"`
	Tags       string     `json:"tags" gorm:"size:200" validate:"max=200"`
	Status     Status     `json:"status" gorm:"not null;index" validate:"status"`
	AuthorID   int        `json:"author_id" gorm:"not null;index" validate:"required,gt=0"`
	AuthorName string     `json:"author" gorm:"size:150"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index;autoCreateTime:false"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime:false"`
	Comments   []*Comment `json:"comments,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" validate:"-"`
}

// Comment is a reader's remark on a post. Inactive comments are hidden
// from public views.
type Comment struct {
	ID         int       `json:"id" gorm:"primaryKey;autoIncrement" validate:"gte=0"`
	PostID     int       `json:"post_id" gorm:"not null;index" validate:"required,gt=0"`
	AuthorID   int       `json:"author_id" gorm:"not null;index" validate:"required,gt=0"`
	AuthorName string    `json:"author" gorm:"size:150"`
	Content    string    `json:"content" gorm:"size:1000;not null" validate:"required,max=1000"`
	Active     bool      `json:"active" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"index;autoCreateTime:false"`
}

// User is a registered account.
type User struct {
	ID           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:150;not null;uniqueIndex" validate:"required,min=3,max=150,username"`
	PasswordHash string    `json:"-" gorm:"size:255;not null" validate:"required"`
	IsStaff      bool      `json:"is_staff" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}
