package services

import (
	"errors"
	"fmt"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/slug"
)

// DefaultPageSize is the number of posts on a public listing page.
const DefaultPageSize = 5

// LastPage asks ListPublished for the final page, whatever its number.
const LastPage = -1

// PostPage is one page of the public listing.
type PostPage struct {
	Posts    []*models.Post `json:"posts"`
	Number   int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
	NumPages int            `json:"num_pages"`
}

func (p *PostPage) HasPrevious() bool { return p.Number > 1 }
func (p *PostPage) HasNext() bool     { return p.Number < p.NumPages }
func (p *PostPage) Previous() int     { return p.Number - 1 }
func (p *PostPage) Next() int         { return p.Number + 1 }

// PostService handles business logic for blog posts
type PostService struct {
	postRepo    repositories.PostRepository
	commentRepo repositories.CommentRepository
	now         func() time.Time
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository, commentRepo repositories.CommentRepository) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// ListPublished returns one page of published posts, newest first.
// Page 1 of an empty listing is valid and empty.
func (s *PostService) ListPublished(page, pageSize int) (*PostPage, error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	published := models.StatusPublished
	filter := repositories.PostFilter{Status: &published}

	total, err := s.postRepo.Count(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	numPages := (total + pageSize - 1) / pageSize
	if numPages < 1 {
		numPages = 1
	}
	if page == LastPage {
		page = numPages
	}
	if page < 1 || page > numPages {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidPage, page, numPages)
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	posts, err := s.postRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &PostPage{
		Posts:    models.PublishedPosts(posts),
		Number:   page,
		PageSize: pageSize,
		Total:    total,
		NumPages: numPages,
	}, nil
}

// GetPublishedBySlug returns a published post with its active comments
// attached, oldest first. Drafts are reported as not found to everyone.
func (s *PostService) GetPublishedBySlug(slugValue string) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(slugValue)
	if err != nil {
		return nil, storeError(err)
	}
	if !post.IsPublished() {
		return nil, ErrNotFound
	}

	active := true
	comments, err := s.commentRepo.List(repositories.CommentFilter{PostID: post.ID, Active: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	post.Comments = models.ActiveComments(comments)
	return post, nil
}

// CreatePost validates input and stores a new post owned by the caller.
// A blank slug is derived from the title.
func (s *PostService) CreatePost(caller Caller, input PostInput) (*models.Post, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrAuthenticationRequired
	}
	if err := validatePostInput(&input); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      input.Title,
		Body:       input.Body,
		Tags:       input.Tags,
		Status:     input.Status,
		AuthorID:   caller.UserID,
		AuthorName: caller.Username,
	}
	post.BeforeCreate(s.now())

	if input.Slug != "" {
		post.Slug = input.Slug
	} else {
		allocated, err := slug.Allocate(input.Title, s.postRepo.SlugExists)
		if err != nil {
			return nil, err
		}
		post.Slug = allocated
	}

	if err := post.Validate(); err != nil {
		return nil, validationErrorFrom(err)
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, storeError(err)
	}
	return post, nil
}

// GetOwnBySlug returns a post of any status if the caller wrote it.
// Posts owned by others are reported as not found.
func (s *PostService) GetOwnBySlug(caller Caller, slugValue string) (*models.Post, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrAuthenticationRequired
	}
	post, err := s.postRepo.GetBySlug(slugValue)
	if err != nil {
		return nil, storeError(err)
	}
	if !post.OwnedBy(caller.UserID) {
		return nil, ErrNotFound
	}
	return post, nil
}

// EditPost applies input to the caller's post. A blank slug keeps the
// current one. CreatedAt never changes.
func (s *PostService) EditPost(caller Caller, slugValue string, input PostInput) (*models.Post, error) {
	existing, err := s.GetOwnBySlug(caller, slugValue)
	if err != nil {
		return nil, err
	}
	if err := validatePostInput(&input); err != nil {
		return nil, err
	}

	post := existing.Clone()
	post.Title = input.Title
	post.Body = input.Body
	post.Tags = input.Tags
	post.Status = input.Status
	if input.Slug != "" {
		post.Slug = input.Slug
	}
	post.Touch(s.now())

	if err := post.Validate(); err != nil {
		return nil, validationErrorFrom(err)
	}
	if err := s.postRepo.Update(post); err != nil {
		return nil, storeError(err)
	}
	return post, nil
}

// DeletePost removes the caller's post and all of its comments.
func (s *PostService) DeletePost(caller Caller, slugValue string) error {
	post, err := s.GetOwnBySlug(caller, slugValue)
	if err != nil {
		return err
	}
	return storeError(s.postRepo.Delete(post.ID))
}

// ListOwnPosts returns every post the caller wrote, any status, newest first.
func (s *PostService) ListOwnPosts(caller Caller) ([]*models.Post, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrAuthenticationRequired
	}
	return s.postRepo.List(repositories.PostFilter{AuthorID: caller.UserID})
}

// SearchPosts lists posts of any author for the admin console.
func (s *PostService) SearchPosts(query PostQuery) ([]*models.Post, error) {
	return s.postRepo.List(repositories.PostFilter{Status: query.Status, Search: query.Search})
}

// validatePostInput trims the input in place and checks it.
func validatePostInput(input *PostInput) error {
	input.normalize()
	if err := models.Validator().Struct(input); err != nil {
		return validationErrorFrom(err)
	}
	if input.Slug != "" && slug.IsReserved(input.Slug) {
		return newValidationError("slug", fmt.Sprintf("The slug %q is reserved.", input.Slug))
	}
	return nil
}

// IsClientError reports whether err is caused by the request rather than
// the server.
func IsClientError(err error) bool {
	for _, target := range []error{ErrNotFound, ErrAuthenticationRequired, ErrForbidden, ErrInvalidPage, ErrInvalidCredentials, ErrValidation} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
