package repositories

import "inkpost/app/models"

// PostFilter narrows post listings. Zero values mean "any".
type PostFilter struct {
	Status   *models.Status
	AuthorID int
	// Search matches case-insensitively against title, body and tags.
	Search string
	Limit  int
	Offset int
}

// CommentFilter narrows comment listings. Zero values mean "any".
type CommentFilter struct {
	PostID      int
	Active      *bool
	Search      string
	NewestFirst bool
}

// PostRepository defines the interface for post data access.
// Listings are ordered newest first, ties broken by descending ID.
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	GetBySlug(slug string) (*models.Post, error)
	SlugExists(slug string) (bool, error)
	List(filter PostFilter) ([]*models.Post, error)
	Count(filter PostFilter) (int, error)
	Update(post *models.Post) error
	// Delete removes the post together with all of its comments.
	Delete(id int) error
}

// CommentRepository defines the interface for comment data access.
// Listings are ordered oldest first unless NewestFirst is set.
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id int) (*models.Comment, error)
	List(filter CommentFilter) ([]*models.Comment, error)
	// SetActive sets the flag on every listed comment and returns how many
	// of the ids exist. Unknown ids are ignored.
	SetActive(ids []int, active bool) (int, error)
}

// UserRepository defines the interface for account data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}
