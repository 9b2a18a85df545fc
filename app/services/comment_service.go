package services

import (
	"fmt"
	"strings"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"
)

// CommentService handles business logic for comments
type CommentService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
	now         func() time.Time
}

// NewCommentService creates a new CommentService
func NewCommentService(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	s.now = now
	return s
}

// AddComment attaches an active comment by the caller to a published post.
// Anonymous callers are rejected before the post is looked up, and drafts
// are reported as not found.
func (s *CommentService) AddComment(caller Caller, postSlug string, input CommentInput) (*models.Comment, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrAuthenticationRequired
	}

	post, err := s.postRepo.GetBySlug(postSlug)
	if err != nil {
		return nil, storeError(err)
	}
	if !post.IsPublished() {
		return nil, ErrNotFound
	}

	input.Content = strings.TrimSpace(input.Content)
	if err := models.Validator().Struct(&input); err != nil {
		return nil, validationErrorFrom(err)
	}

	comment := &models.Comment{
		PostID:     post.ID,
		AuthorID:   caller.UserID,
		AuthorName: caller.Username,
		Content:    input.Content,
		Active:     true,
	}
	comment.BeforeCreate(s.now())
	if err := comment.Validate(); err != nil {
		return nil, validationErrorFrom(err)
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, storeError(err)
	}
	return comment, nil
}

// ListActive returns a post's approved comments, oldest first.
func (s *CommentService) ListActive(postID int) ([]*models.Comment, error) {
	active := true
	comments, err := s.commentRepo.List(repositories.CommentFilter{PostID: postID, Active: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return models.ActiveComments(comments), nil
}

// SetCommentsActive approves or hides comments in bulk and returns how
// many of ids exist. Repeating the call is harmless.
func (s *CommentService) SetCommentsActive(ids []int, active bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.commentRepo.SetActive(ids, active)
	if err != nil {
		return 0, fmt.Errorf("failed to update comments: %w", err)
	}
	return n, nil
}

// ListComments lists comments of any state for the admin console,
// newest first.
func (s *CommentService) ListComments(query CommentQuery) ([]*models.Comment, error) {
	return s.commentRepo.List(repositories.CommentFilter{
		Active:      query.Active,
		Search:      query.Search,
		NewestFirst: true,
	})
}
