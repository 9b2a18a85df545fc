package repositories

import (
	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// userRecord is the stored form of a user. The password hash is excluded
// from the model's JSON so it has to be carried explicitly.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func (rec *userRecord) toModel() *models.User {
	u := rec.User
	u.PasswordHash = rec.PasswordHash
	return &u
}

// BadgerUserRepository implements UserRepository using BadgerDB
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// Create stores a new user, rejecting a username that is already taken.
func (r *BadgerUserRepository) Create(user *models.User) error {
	return update(r.db, func(txn *badger.Txn) error {
		owner, err := indexOwner(txn, indexKey(usernameIndex, user.Username))
		if err != nil {
			return err
		}
		if owner != 0 {
			return ErrDuplicateUsername
		}

		id, err := getNextID(txn, UserSeqKey)
		if err != nil {
			return err
		}
		user.ID = id

		data, err := marshalEntity(&userRecord{User: *user, PasswordHash: user.PasswordHash})
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(id), data); err != nil {
			return err
		}
		return setIndex(txn, indexKey(usernameIndex, user.Username), id)
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(id int) (*models.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKey(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// GetByUsername retrieves a user by exact username.
func (r *BadgerUserRepository) GetByUsername(username string) (*models.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := indexOwner(txn, indexKey(usernameIndex, username))
		if err != nil {
			return err
		}
		if id == 0 {
			return ErrNotFound
		}
		return getEntity(txn, userKey(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}
