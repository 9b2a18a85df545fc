package repositories

import (
	"errors"
	"strings"

	"inkpost/app/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translateGormError maps driver errors onto the package's sentinels.
// Unique violations are attributed to a column when the message names one.
func translateGormError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	msg := strings.ToLower(err.Error())
	unique := errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
	if !unique {
		return err
	}
	switch {
	case strings.Contains(msg, "title"):
		return ErrDuplicateTitle
	case strings.Contains(msg, "slug"):
		return ErrDuplicateSlug
	case strings.Contains(msg, "username"):
		return ErrDuplicateUsername
	default:
		return ErrConflict
	}
}

// GormPostRepository implements PostRepository on a SQL database.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GormPostRepository
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create inserts a post after checking title and slug are free.
// The unique indexes still guard against a racing insert.
func (r *GormPostRepository) Create(post *models.Post) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkPostUnique(tx, post); err != nil {
			return err
		}
		return translateGormError(tx.Omit(clause.Associations).Create(post).Error)
	})
}

func checkPostUnique(tx *gorm.DB, post *models.Post) error {
	var n int64
	if err := tx.Model(&models.Post{}).Where("title = ? AND id <> ?", post.Title, post.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateTitle
	}
	if err := tx.Model(&models.Post{}).Where("slug = ? AND id <> ?", post.Slug, post.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateSlug
	}
	return nil
}

// GetByID retrieves a post by ID
func (r *GormPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	if err := r.db.First(&post, id).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &post, nil
}

// GetBySlug retrieves a post by slug
func (r *GormPostRepository) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &post, nil
}

// SlugExists reports whether any post holds slug.
func (r *GormPostRepository) SlugExists(slug string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Post{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *GormPostRepository) filtered(filter PostFilter) *gorm.DB {
	query := r.db.Model(&models.Post{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	return applySearch(query, filter.Search, "title", "body", "tags")
}

// List retrieves the posts matching filter, newest first.
func (r *GormPostRepository) List(filter PostFilter) ([]*models.Post, error) {
	posts := []*models.Post{}
	query := applyPagination(r.filtered(filter).Order("created_at DESC, id DESC"), filter.Limit, filter.Offset)
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns how many posts match filter.
func (r *GormPostRepository) Count(filter PostFilter) (int, error) {
	var n int64
	if err := r.filtered(filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// Update saves every column of an existing post.
func (r *GormPostRepository) Update(post *models.Post) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := checkPostUnique(tx, post); err != nil {
			return err
		}
		return translateGormError(tx.Omit(clause.Associations).Save(post).Error)
	})
}

// Delete removes a post and its comments.
func (r *GormPostRepository) Delete(id int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GormCommentRepository implements CommentRepository on a SQL database.
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GormCommentRepository
func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// Create inserts a comment on an existing post.
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return translateGormError(tx.Create(comment).Error)
	})
}

// GetByID retrieves a comment by ID
func (r *GormCommentRepository) GetByID(id int) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &comment, nil
}

// List retrieves the comments matching filter.
func (r *GormCommentRepository) List(filter CommentFilter) ([]*models.Comment, error) {
	query := r.db.Model(&models.Comment{})
	if filter.PostID != 0 {
		query = query.Where("post_id = ?", filter.PostID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	query = applySearch(query, filter.Search, "content", "author_name")
	if filter.NewestFirst {
		query = query.Order("created_at DESC, id DESC")
	} else {
		query = query.Order("created_at ASC, id ASC")
	}

	comments := []*models.Comment{}
	if err := query.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// SetActive updates the active flag and returns how many ids exist.
func (r *GormCommentRepository) SetActive(ids []int, active bool) (int, error) {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	var matched int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).Where("id IN ?", ids).Count(&matched).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id IN ?", ids).Update("active", active).Error
	})
	return int(matched), err
}

// GormUserRepository implements UserRepository on a SQL database.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user, rejecting a taken username.
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateUsername
		}
		return translateGormError(tx.Create(user).Error)
	})
}

// GetByID retrieves a user by ID
func (r *GormUserRepository) GetByID(id int) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}
