package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bluelog/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCategoryRepository implements CategoryRepository using BadgerDB
type BadgerCategoryRepository struct {
	db *badger.DB
}

// NewBadgerCategoryRepository creates a new BadgerCategoryRepository
func NewBadgerCategoryRepository(db *badger.DB) *BadgerCategoryRepository {
	return &BadgerCategoryRepository{db: db}
}

func categoryKey(id int) string {
	return fmt.Sprintf("%s%d", CategoryKeyPrefix, id)
}

// Create creates a new category. Names are unique, ignoring case.
func (r *BadgerCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		duplicate := false
		err := scanPrefix(txn, CategoryKeyPrefix, func(val []byte) error {
			var existing models.Category
			if err := unmarshalEntity(val, &existing); err != nil {
				return err
			}
			if strings.EqualFold(existing.Name, category.Name) {
				duplicate = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if duplicate {
			return fmt.Errorf("category %q already exists", category.Name)
		}

		id, err := getNextID(txn, CategorySeqKey)
		if err != nil {
			return err
		}
		category.ID = id
		category.BeforeCreate()

		return setEntity(txn, categoryKey(category.ID), category)
	})
}

// GetByID retrieves a category by ID
func (r *BadgerCategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	var category models.Category
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, categoryKey(id), &category)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetByName retrieves a category by name, ignoring case
func (r *BadgerCategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	categories, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, category := range categories {
		if strings.EqualFold(category.Name, name) {
			return category, nil
		}
	}
	return nil, ErrNotFound
}

// List retrieves every category ordered by name
func (r *BadgerCategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, CategoryKeyPrefix, func(val []byte) error {
			var category models.Category
			if err := unmarshalEntity(val, &category); err != nil {
				return fmt.Errorf("failed to unmarshal category: %w", err)
			}
			categories = append(categories, &category)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}
