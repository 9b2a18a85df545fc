package repositories

import (
	"fmt"
	"strconv"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB.
// Comments are keyed by post so a post's thread is a single prefix scan.
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create creates a new comment on an existing post.
func (r *BadgerCommentRepository) Create(comment *models.Comment) error {
	return update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(postKey(comment.PostID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}

		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		data, err := marshalEntity(comment)
		if err != nil {
			return err
		}

		key := commentKey(comment.PostID, comment.ID)
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(indexKey(commentIndex, strconv.Itoa(id)), key)
	})
}

// GetByID retrieves a comment by ID
func (r *BadgerCommentRepository) GetByID(id int) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := getComment(txn, id, &comment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// getComment resolves the comment's primary key through its index entry.
func getComment(txn *badger.Txn, id int, comment *models.Comment) ([]byte, error) {
	item, err := txn.Get(indexKey(commentIndex, strconv.Itoa(id)))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return key, getEntity(txn, key, comment)
}

// List retrieves the comments matching filter.
func (r *BadgerCommentRepository) List(filter CommentFilter) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(CommentKeyPrefix)
		if filter.PostID != 0 {
			opts.Prefix = commentPrefix(filter.PostID)
		}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var comment models.Comment
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal comment: %w", err)
			}
			if filter.Matches(&comment) {
				comments = append(comments, &comment)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortComments(comments, filter.NewestFirst)
	return comments, nil
}

// SetActive flips the active flag on the given comments in one transaction.
func (r *BadgerCommentRepository) SetActive(ids []int, active bool) (int, error) {
	var matched int
	err := update(r.db, func(txn *badger.Txn) error {
		matched = 0
		for _, id := range UniqueIDs(ids) {
			var comment models.Comment
			key, err := getComment(txn, id, &comment)
			if err == ErrNotFound {
				continue
			}
			if err != nil {
				return err
			}
			matched++
			if comment.Active == active {
				continue
			}
			comment.Active = active
			data, err := marshalEntity(&comment)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	return matched, err
}
