package repositories

import (
	"fmt"
	"io"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Repository is the badger backed Store.
type Repository struct {
	db       *badger.DB
	dbPath   string
	isTestDB bool

	posts      *BadgerPostRepository
	categories *BadgerCategoryRepository
	comments   *BadgerCommentRepository
	admins     *BadgerAdminRepository
}

// NewRepository opens the badger database at path. An empty path or
// "test_db" opens a throwaway database in a fresh temporary directory.
func NewRepository(path string) (*Repository, error) {
	isTest := false
	if path == "" || path == "test_db" {
		tempPath, err := os.MkdirTemp("", "bluelog_test_db_")
		if err != nil {
			return nil, fmt.Errorf("error creating temp dir: %w", err)
		}
		path = tempPath
		isTest = true
	}
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return newRepository(db, path, isTest), nil
}

// NewInMemoryRepository opens a badger database that lives only in memory.
func NewInMemoryRepository() (*Repository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return newRepository(db, "", false), nil
}

func newRepository(db *badger.DB, path string, isTest bool) *Repository {
	return &Repository{
		db:         db,
		dbPath:     path,
		isTestDB:   isTest,
		posts:      NewBadgerPostRepository(db),
		categories: NewBadgerCategoryRepository(db),
		comments:   NewBadgerCommentRepository(db),
		admins:     NewBadgerAdminRepository(db),
	}
}

func (r *Repository) Posts() PostRepository           { return r.posts }
func (r *Repository) Categories() CategoryRepository { return r.categories }
func (r *Repository) Comments() CommentRepository     { return r.comments }
func (r *Repository) Admins() AdminRepository         { return r.admins }

// DB exposes the underlying badger handle.
func (r *Repository) DB() *badger.DB {
	return r.db
}

// Backup streams a full backup of the database to w.
func (r *Repository) Backup(w io.Writer) error {
	if _, err := r.db.Backup(w, 0); err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}
	return nil
}

// Load restores a backup written by Backup.
func (r *Repository) Load(rd io.Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic occurred during restore: %v", rec)
		}
	}()
	if err := r.db.Load(rd, 4); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

// Clear drops every key.
func (r *Repository) Clear() error {
	return r.db.DropAll()
}

func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		return err
	}

	// Clean up test database
	if r.isTestDB {
		if err := os.RemoveAll(r.dbPath); err != nil {
			return fmt.Errorf("failed to cleanup test database: %w", err)
		}
	}
	return nil
}
