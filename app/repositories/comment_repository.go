package repositories

import (
	"context"
	"fmt"
	"strconv"

	"bluelog/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB.
// Comments are keyed by post so listing a post's comments is a prefix scan.
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

func commentPrefix(postID int) string {
	return fmt.Sprintf("%s%d:", CommentKeyPrefix, postID)
}

func commentKey(postID, id int) string {
	return fmt.Sprintf("%s%d:%d", CommentKeyPrefix, postID, id)
}

func commentIndexKey(id int) string {
	return fmt.Sprintf("%s%d", CommentIndexPrefix, id)
}

// lookupPostID resolves the post a comment lives under
func lookupPostID(txn *badger.Txn, id int) (int, error) {
	item, err := txn.Get([]byte(commentIndexKey(id)))
	if err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	var postID int
	err = item.Value(func(val []byte) error {
		postID, err = strconv.Atoi(string(val))
		return err
	})
	return postID, err
}

// Create stores a new comment. The comment and its index entry are written
// in one transaction.
func (r *BadgerCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var post models.Post
		if err := getEntity(txn, postKey(comment.PostID), &post); err != nil {
			return fmt.Errorf("post %d: %w", comment.PostID, err)
		}

		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id
		comment.BeforeCreate()

		if err := setEntity(txn, commentKey(comment.PostID, comment.ID), comment); err != nil {
			return err
		}
		return txn.Set([]byte(commentIndexKey(comment.ID)), []byte(strconv.Itoa(comment.PostID)))
	})
}

// GetByID retrieves a comment by ID
func (r *BadgerCommentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		postID, err := lookupPostID(txn, id)
		if err != nil {
			return err
		}
		return getEntity(txn, commentKey(postID, id), &comment)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// List retrieves a page of a post's comments, oldest first, and the number
// of comments that match the query
func (r *BadgerCommentRepository) List(ctx context.Context, q CommentQuery) ([]*models.Comment, int, error) {
	prefix := CommentKeyPrefix
	if q.PostID != 0 {
		prefix = commentPrefix(q.PostID)
	}

	var comments []*models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, func(val []byte) error {
			var comment models.Comment
			if err := unmarshalEntity(val, &comment); err != nil {
				return fmt.Errorf("failed to unmarshal comment: %w", err)
			}
			comments = append(comments, &comment)
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	comments = FilterComments(comments, q)
	SortComments(comments)
	return Window(comments, q.Limit, q.Offset), len(comments), nil
}

// Update updates an existing comment. The owning post cannot change.
func (r *BadgerCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		postID, err := lookupPostID(txn, comment.ID)
		if err != nil {
			return err
		}
		if postID != comment.PostID {
			return fmt.Errorf("comment %d belongs to post %d", comment.ID, postID)
		}
		return setEntity(txn, commentKey(postID, comment.ID), comment)
	})
}

// Delete deletes a comment by ID. Replies to it are kept; their RepliedID
// is left dangling.
func (r *BadgerCommentRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		postID, err := lookupPostID(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete([]byte(commentKey(postID, id))); err != nil {
			return err
		}
		return txn.Delete([]byte(commentIndexKey(id)))
	})
}
