package repositories

import (
	"context"

	"bluelog/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAdminRepository implements AdminRepository using BadgerDB
type BadgerAdminRepository struct {
	db *badger.DB
}

// NewBadgerAdminRepository creates a new BadgerAdminRepository
func NewBadgerAdminRepository(db *badger.DB) *BadgerAdminRepository {
	return &BadgerAdminRepository{db: db}
}

func adminKey(username string) string {
	return AdminKeyPrefix + username
}

// Save creates the admin or replaces the one with the same username
func (r *BadgerAdminRepository) Save(ctx context.Context, admin *models.Admin) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var existing models.Admin
		err := getEntity(txn, adminKey(admin.Username), &existing)
		switch {
		case err == ErrNotFound:
			id, err := getNextID(txn, AdminSeqKey)
			if err != nil {
				return err
			}
			admin.ID = id
		case err != nil:
			return err
		default:
			admin.ID = existing.ID
		}

		return setEntity(txn, adminKey(admin.Username), admin)
	})
}

// GetByUsername retrieves an admin by username
func (r *BadgerAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, adminKey(username), &admin)
	})
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// First returns the admin with the lowest ID
func (r *BadgerAdminRepository) First(ctx context.Context) (*models.Admin, error) {
	var first *models.Admin
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, AdminKeyPrefix, func(val []byte) error {
			var admin models.Admin
			if err := unmarshalEntity(val, &admin); err != nil {
				return err
			}
			if first == nil || admin.ID < first.ID {
				first = &admin
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, ErrNotFound
	}
	return first, nil
}
