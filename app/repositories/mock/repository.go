// Package mock provides in-memory repositories for tests. They enforce the
// same uniqueness and cascade rules as the real stores and hand out copies,
// so callers cannot mutate stored records by accident.
package mock

import (
	"sync"

	"inkpost/app/models"
	"inkpost/app/repositories"
)

// DB holds the shared state behind the mock repositories.
type DB struct {
	mutex    sync.RWMutex
	posts    map[int]*models.Post
	comments map[int]*models.Comment
	users    map[int]*models.User
	nextPost int
	nextComm int
	nextUser int
}

type PostRepository struct{ db *DB }

type CommentRepository struct{ db *DB }

type UserRepository struct{ db *DB }

// NewDB creates an empty in-memory database.
func NewDB() *DB {
	db := &DB{}
	db.Clear()
	return db
}

// NewStore returns a repositories.Store backed by a fresh in-memory database.
func NewStore() *repositories.Store {
	db := NewDB()
	return repositories.NewStore(&PostRepository{db}, &CommentRepository{db}, &UserRepository{db})
}

func (m *DB) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[int]*models.Post)
	m.comments = make(map[int]*models.Comment)
	m.users = make(map[int]*models.User)
	m.nextPost, m.nextComm, m.nextUser = 1, 1, 1
}

// PostRepository implementation

func (m *PostRepository) checkUnique(post *models.Post) error {
	for _, p := range m.db.posts {
		if p.ID == post.ID {
			continue
		}
		if p.Title == post.Title {
			return repositories.ErrDuplicateTitle
		}
		if p.Slug == post.Slug {
			return repositories.ErrDuplicateSlug
		}
	}
	return nil
}

func (m *PostRepository) Create(post *models.Post) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()

	if err := m.checkUnique(post); err != nil {
		return err
	}
	post.ID = m.db.nextPost
	m.db.nextPost++
	m.db.posts[post.ID] = post.Clone()
	return nil
}

func (m *PostRepository) GetByID(id int) (*models.Post, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	post, exists := m.db.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return post.Clone(), nil
}

func (m *PostRepository) GetBySlug(slug string) (*models.Post, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	for _, post := range m.db.posts {
		if post.Slug == slug {
			return post.Clone(), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *PostRepository) SlugExists(slug string) (bool, error) {
	_, err := m.GetBySlug(slug)
	if err == repositories.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *PostRepository) matching(filter repositories.PostFilter) []*models.Post {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	posts := []*models.Post{}
	for _, post := range m.db.posts {
		if filter.Matches(post) {
			posts = append(posts, post.Clone())
		}
	}
	return posts
}

func (m *PostRepository) List(filter repositories.PostFilter) ([]*models.Post, error) {
	posts := m.matching(filter)
	repositories.SortPosts(posts)
	return repositories.Paginate(posts, filter.Limit, filter.Offset), nil
}

func (m *PostRepository) Count(filter repositories.PostFilter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *PostRepository) Update(post *models.Post) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()

	if _, exists := m.db.posts[post.ID]; !exists {
		return repositories.ErrNotFound
	}
	if err := m.checkUnique(post); err != nil {
		return err
	}
	m.db.posts[post.ID] = post.Clone()
	return nil
}

func (m *PostRepository) Delete(id int) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()

	if _, exists := m.db.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	for cid, c := range m.db.comments {
		if c.PostID == id {
			delete(m.db.comments, cid)
		}
	}
	delete(m.db.posts, id)
	return nil
}

// CommentRepository implementation

func (m *CommentRepository) Create(comment *models.Comment) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()

	if _, exists := m.db.posts[comment.PostID]; !exists {
		return repositories.ErrNotFound
	}
	comment.ID = m.db.nextComm
	m.db.nextComm++
	m.db.comments[comment.ID] = comment.Clone()
	return nil
}

func (m *CommentRepository) GetByID(id int) (*models.Comment, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	comment, exists := m.db.comments[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return comment.Clone(), nil
}

func (m *CommentRepository) List(filter repositories.CommentFilter) ([]*models.Comment, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	comments := []*models.Comment{}
	for _, comment := range m.db.comments {
		if filter.Matches(comment) {
			comments = append(comments, comment.Clone())
		}
	}
	repositories.SortComments(comments, filter.NewestFirst)
	return comments, nil
}

func (m *CommentRepository) SetActive(ids []int, active bool) (int, error) {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()

	matched := 0
	for _, id := range repositories.UniqueIDs(ids) {
		if comment, exists := m.db.comments[id]; exists {
			comment.Active = active
			matched++
		}
	}
	return matched, nil
}

// UserRepository implementation

func (m *UserRepository) Create(user *models.User) error {
	m.db.mutex.Lock()
	defer m.db.mutex.Unlock()

	for _, u := range m.db.users {
		if u.Username == user.Username {
			return repositories.ErrDuplicateUsername
		}
	}
	user.ID = m.db.nextUser
	m.db.nextUser++
	m.db.users[user.ID] = user.Clone()
	return nil
}

func (m *UserRepository) GetByID(id int) (*models.User, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	user, exists := m.db.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return user.Clone(), nil
}

func (m *UserRepository) GetByUsername(username string) (*models.User, error) {
	m.db.mutex.RLock()
	defer m.db.mutex.RUnlock()

	for _, user := range m.db.users {
		if user.Username == username {
			return user.Clone(), nil
		}
	}
	return nil, repositories.ErrNotFound
}
