package repositories

import (
	"context"
	"fmt"

	"bluelog/app/models"

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

func postKey(id int) string {
	return fmt.Sprintf("%s%d", PostKeyPrefix, id)
}

// storedPost drops the relations loaded for display
func storedPost(post *models.Post) *models.Post {
	stored := *post
	stored.Category = nil
	stored.Comments = nil
	return &stored
}

// Create creates a new post
func (r *BadgerPostRepository) Create(ctx context.Context, post *models.Post) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		// The category must exist
		var category models.Category
		if err := getEntity(txn, categoryKey(post.CategoryID), &category); err != nil {
			return fmt.Errorf("category %d: %w", post.CategoryID, err)
		}

		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id
		post.BeforeCreate()

		return setEntity(txn, postKey(post.ID), storedPost(post))
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves a page of posts, newest first, and the number of posts
// that match the query
func (r *BadgerPostRepository) List(ctx context.Context, q PostQuery) ([]*models.Post, int, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, PostKeyPrefix, func(val []byte) error {
			var post models.Post
			if err := unmarshalEntity(val, &post); err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			if q.CategoryID != 0 && post.CategoryID != q.CategoryID {
				return nil
			}
			posts = append(posts, &post)
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	SortPosts(posts)
	return Window(posts, q.Limit, q.Offset), len(posts), nil
}

// Update updates an existing post
func (r *BadgerPostRepository) Update(ctx context.Context, post *models.Post) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var existing models.Post
		if err := getEntity(txn, postKey(post.ID), &existing); err != nil {
			return err
		}
		return setEntity(txn, postKey(post.ID), storedPost(post))
	})
}

// Delete deletes a post and its comments
func (r *BadgerPostRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		key := []byte(postKey(id))

		// Verify post exists
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var commentIDs []int
		err = scanPrefix(txn, commentPrefix(id), func(val []byte) error {
			var comment models.Comment
			if err := unmarshalEntity(val, &comment); err != nil {
				return err
			}
			commentIDs = append(commentIDs, comment.ID)
			return nil
		})
		if err != nil {
			return err
		}
		for _, cid := range commentIDs {
			if err := txn.Delete([]byte(commentKey(id, cid))); err != nil {
				return err
			}
			if err := txn.Delete([]byte(commentIndexKey(cid))); err != nil {
				return err
			}
		}

		return txn.Delete(key)
	})
}
