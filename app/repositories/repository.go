package repositories

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported storage drivers.
const (
	DriverBadger   = "badger"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and tunes a storage backend.
type Options struct {
	Driver string
	// Path is the Badger data directory.
	Path string
	// DSN is the SQLite file or PostgreSQL connection string.
	DSN      string
	InMemory bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store bundles the repositories of one backend.
type Store struct {
	Posts    PostRepository
	Comments CommentRepository
	Users    UserRepository

	driver string
	bdb    *badger.DB
	gdb    *gorm.DB
}

// Open connects to the backend named by opts.Driver.
func Open(opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverBadger:
		return openBadger(opts, log)
	case DriverSQLite, DriverPostgres, "postgresql":
		return openGorm(opts)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

func openBadger(opts Options, log *zap.Logger) (*Store, error) {
	path := opts.Path
	if opts.InMemory {
		path = ""
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	bopts := badger.DefaultOptions(path).
		WithInMemory(opts.InMemory).
		WithLogger(newBadgerLogger(log)).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", path, err)
	}
	return NewBadgerStore(db), nil
}

func openGorm(opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case DriverSQLite:
		dsn := opts.DSN
		if opts.InMemory {
			dsn = "file:inkpost-" + uuid.NewString() + "?mode=memory&cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(opts.DSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.InMemory {
		// A shared-cache memory database lives only while a connection is open.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}
	return NewGormStore(db)
}

// NewBadgerStore wraps an open Badger database.
func NewBadgerStore(db *badger.DB) *Store {
	return &Store{
		Posts:    NewBadgerPostRepository(db),
		Comments: NewBadgerCommentRepository(db),
		Users:    NewBadgerUserRepository(db),
		driver:   DriverBadger,
		bdb:      db,
	}
}

// NewGormStore migrates the schema and wraps a GORM connection.
func NewGormStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{
		Posts:    NewGormPostRepository(db),
		Comments: NewGormCommentRepository(db),
		Users:    NewGormUserRepository(db),
		driver:   dbDialectName(db),
		gdb:      db,
	}, nil
}

// NewStore assembles a store from arbitrary repositories, such as
// in-memory fakes.
func NewStore(posts PostRepository, comments CommentRepository, users UserRepository) *Store {
	return &Store{Posts: posts, Comments: comments, Users: users, driver: DriverMemory}
}

// Driver names the backend in use.
func (s *Store) Driver() string {
	return s.driver
}

// Clear removes every record.
func (s *Store) Clear() error {
	switch {
	case s.bdb != nil:
		return s.bdb.DropAll()
	case s.gdb != nil:
		return s.gdb.Transaction(func(tx *gorm.DB) error {
			for _, model := range []interface{}{&models.Comment{}, &models.Post{}, &models.User{}} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return ErrUnsupported
	}
}

// Backup streams a full Badger backup to w.
func (s *Store) Backup(w io.Writer) error {
	if s.bdb == nil {
		return fmt.Errorf("backup with %s driver: %w", s.driver, ErrUnsupported)
	}
	_, err := s.bdb.Backup(w, 0)
	return err
}

// Restore loads a backup produced by Backup. Existing keys are overwritten.
func (s *Store) Restore(r io.Reader) error {
	if s.bdb == nil {
		return fmt.Errorf("restore with %s driver: %w", s.driver, ErrUnsupported)
	}
	return s.bdb.Load(r, 256)
}

// Close releases the underlying database.
func (s *Store) Close() error {
	switch {
	case s.bdb != nil:
		return s.bdb.Close()
	case s.gdb != nil:
		sqlDB, err := s.gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	default:
		return nil
	}
}

// IsDuplicate reports whether err is one of the uniqueness violations.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateTitle) ||
		errors.Is(err, ErrDuplicateSlug) ||
		errors.Is(err, ErrDuplicateUsername)
}
