package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"bluelog/app/models"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound = errors.New("record not found")
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix     = "post:"
	CategoryKeyPrefix = "category:"
	CommentKeyPrefix  = "comment:"
	AdminKeyPrefix    = "admin:"

	// CommentIndexPrefix maps a comment ID to its post ID, so a comment can
	// be found without scanning every post.
	CommentIndexPrefix = "comment_post:"

	// Sequence keys for auto-incrementing IDs
	PostSeqKey     = "seq:post"
	CategorySeqKey = "seq:category"
	CommentSeqKey  = "seq:comment"
	AdminSeqKey    = "seq:admin"
)

// maxTxnAttempts bounds how often a conflicting write transaction is retried.
const maxTxnAttempts = 100

// update runs fn in a read-write transaction and retries it when a
// concurrent writer committed first. Writes that allocate ids all touch the
// same sequence key, so conflicts are expected under concurrent inserts.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt == maxTxnAttempts {
			return err
		}

		backoff := time.Duration(rand.Intn(1<<min(attempt, 5))+1) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id int
	item, err := txn.Get([]byte(seqKey))
	if err == badger.ErrKeyNotFound {
		id = 1
	} else if err != nil {
		return 0, fmt.Errorf("failed to get sequence: %w", err)
	} else {
		err = item.Value(func(val []byte) error {
			n, err := strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("failed to parse sequence: %w", err)
			}
			id = n + 1
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	// Update the sequence
	if err := txn.Set([]byte(seqKey), []byte(strconv.Itoa(id))); err != nil {
		return 0, fmt.Errorf("failed to update sequence: %w", err)
	}

	return id, nil
}

// getEntity loads and decodes the value stored at key
func getEntity(txn *badger.Txn, key string, entity interface{}) error {
	item, err := txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// setEntity encodes and stores entity at key
func setEntity(txn *badger.Txn, key string, entity interface{}) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// scanPrefix calls fn with the raw value of every key under prefix
func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// Window returns the [offset, offset+limit) slice of items. A limit of zero
// or less means no limit.
func Window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// SortPosts orders posts newest first, breaking ties by ID.
func SortPosts(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// SortComments orders comments oldest first, breaking ties by ID.
func SortComments(comments []*models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}

// FilterComments applies the post and review state of q.
func FilterComments(comments []*models.Comment, q CommentQuery) []*models.Comment {
	var out []*models.Comment
	for _, c := range comments {
		if q.PostID != 0 && c.PostID != q.PostID {
			continue
		}
		if q.Reviewed != nil && c.Reviewed != *q.Reviewed {
			continue
		}
		out = append(out, c)
	}
	return out
}
