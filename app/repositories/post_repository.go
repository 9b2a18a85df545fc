package repositories

import (
	"fmt"
	"strconv"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create stores a new post and assigns its ID. Title and slug are claimed
// in the same transaction as the record itself.
func (r *BadgerPostRepository) Create(post *models.Post) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := claimPostIndexes(txn, post, nil); err != nil {
			return err
		}

		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		if err := writePostIndexes(txn, post); err != nil {
			return err
		}
		data, err := marshalEntity(post.Clone())
		if err != nil {
			return err
		}
		return txn.Set(postKey(post.ID), data)
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBySlug retrieves a post through the slug index.
func (r *BadgerPostRepository) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := indexOwner(txn, indexKey(postSlugIndex, slug))
		if err != nil {
			return err
		}
		if id == 0 {
			return ErrNotFound
		}
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// SlugExists reports whether any post holds slug.
func (r *BadgerPostRepository) SlugExists(slug string) (bool, error) {
	var id int
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		id, err = indexOwner(txn, indexKey(postSlugIndex, slug))
		return err
	})
	return id != 0, err
}

// List retrieves the posts matching filter, newest first.
func (r *BadgerPostRepository) List(filter PostFilter) ([]*models.Post, error) {
	posts, err := r.scan(filter)
	if err != nil {
		return nil, err
	}
	SortPosts(posts)
	return Paginate(posts, filter.Limit, filter.Offset), nil
}

// Count returns how many posts match filter, ignoring Limit and Offset.
func (r *BadgerPostRepository) Count(filter PostFilter) (int, error) {
	posts, err := r.scan(filter)
	if err != nil {
		return 0, err
	}
	return len(posts), nil
}

func (r *BadgerPostRepository) scan(filter PostFilter) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(PostKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			if filter.Matches(&post) {
				posts = append(posts, &post)
			}
		}
		return nil
	})
	return posts, err
}

// Update replaces an existing post, moving its title and slug index
// entries when those change.
func (r *BadgerPostRepository) Update(post *models.Post) error {
	return update(r.db, func(txn *badger.Txn) error {
		var existing models.Post
		if err := getEntity(txn, postKey(post.ID), &existing); err != nil {
			return err
		}
		if err := claimPostIndexes(txn, post, &existing); err != nil {
			return err
		}

		if existing.Title != post.Title {
			if err := txn.Delete(indexKey(postTitleIndex, existing.Title)); err != nil {
				return err
			}
		}
		if existing.Slug != post.Slug {
			if err := txn.Delete(indexKey(postSlugIndex, existing.Slug)); err != nil {
				return err
			}
		}
		if err := writePostIndexes(txn, post); err != nil {
			return err
		}

		data, err := marshalEntity(post.Clone())
		if err != nil {
			return err
		}
		return txn.Set(postKey(post.ID), data)
	})
}

// Delete deletes a post by ID along with its comments.
func (r *BadgerPostRepository) Delete(id int) error {
	return update(r.db, func(txn *badger.Txn) error {
		var post models.Post
		if err := getEntity(txn, postKey(id), &post); err != nil {
			return err
		}

		if err := deleteCommentsOf(txn, id); err != nil {
			return err
		}
		for _, key := range [][]byte{
			indexKey(postTitleIndex, post.Title),
			indexKey(postSlugIndex, post.Slug),
			postKey(id),
		} {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// claimPostIndexes fails when another post already holds the title or slug.
// existing is nil on create.
func claimPostIndexes(txn *badger.Txn, post *models.Post, existing *models.Post) error {
	checks := []struct {
		prefix, value string
		unchanged     bool
		dup           error
	}{
		{postTitleIndex, post.Title, existing != nil && existing.Title == post.Title, ErrDuplicateTitle},
		{postSlugIndex, post.Slug, existing != nil && existing.Slug == post.Slug, ErrDuplicateSlug},
	}
	for _, c := range checks {
		if c.unchanged {
			continue
		}
		owner, err := indexOwner(txn, indexKey(c.prefix, c.value))
		if err != nil {
			return err
		}
		if owner != 0 && owner != post.ID {
			return c.dup
		}
	}
	return nil
}

func writePostIndexes(txn *badger.Txn, post *models.Post) error {
	if err := setIndex(txn, indexKey(postTitleIndex, post.Title), post.ID); err != nil {
		return err
	}
	return setIndex(txn, indexKey(postSlugIndex, post.Slug), post.ID)
}

// deleteCommentsOf removes every comment stored under the post's prefix.
func deleteCommentsOf(txn *badger.Txn, postID int) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = commentPrefix(postID)

	var keys [][]byte
	var ids []int
	it := txn.NewIterator(opts)
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		var pid, cid int
		if _, err := fmt.Sscanf(string(key), CommentKeyPrefix+"%d:%d", &pid, &cid); err != nil {
			it.Close()
			return fmt.Errorf("malformed comment key %q: %w", key, err)
		}
		keys = append(keys, key)
		ids = append(ids, cid)
	}
	it.Close()

	for i, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
		if err := txn.Delete(indexKey(commentIndex, strconv.Itoa(ids[i]))); err != nil {
			return err
		}
	}
	return nil
}
