package repositories

import (
	"bytes"
	"context"
	"testing"
	"time"

	"bluelog/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	category := createTestCategory(t, repo, "Default")

	t.Run("create and get post", func(t *testing.T) {
		post := createTestPost(t, repo, category.ID, time.Time{})
		assert.Greater(t, post.ID, 0)
		assert.False(t, post.CreatedAt.IsZero())

		retrieved, err := repo.Posts().GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Title, retrieved.Title)
		assert.Equal(t, category.ID, retrieved.CategoryID)
		assert.True(t, retrieved.CanComment)
	})

	t.Run("create with unknown category", func(t *testing.T) {
		post := &models.Post{Title: "Orphan", CategoryID: 999}
		err := repo.Posts().Create(ctx, post)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get non-existent post", func(t *testing.T) {
		_, err := repo.Posts().GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update post", func(t *testing.T) {
		post := createTestPost(t, repo, category.ID, time.Time{})
		post.Title = "Updated Title"
		post.CanComment = false
		post.Category = category
		require.NoError(t, repo.Posts().Update(ctx, post))

		retrieved, err := repo.Posts().GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated Title", retrieved.Title)
		assert.False(t, retrieved.CanComment)
		assert.Nil(t, retrieved.Category)

		missing := &models.Post{ID: 999}
		assert.ErrorIs(t, repo.Posts().Update(ctx, missing), ErrNotFound)
	})

	t.Run("delete post with comments", func(t *testing.T) {
		post := createTestPost(t, repo, category.ID, time.Time{})
		comment := &models.Comment{PostID: post.ID, Author: "a", Body: "b"}
		require.NoError(t, repo.Comments().Create(ctx, comment))

		require.NoError(t, repo.Posts().Delete(ctx, post.ID))

		_, err := repo.Posts().GetByID(ctx, post.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.Comments().GetByID(ctx, comment.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, repo.Posts().Delete(ctx, post.ID), ErrNotFound)
	})
}

func TestPostRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	first := createTestCategory(t, repo, "First")
	second := createTestCategory(t, repo, "Second")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		createTestPost(t, repo, first.ID, base.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 3; i++ {
		createTestPost(t, repo, second.ID, base.Add(time.Duration(i)*time.Hour))
	}

	t.Run("all posts newest first", func(t *testing.T) {
		posts, total, err := repo.Posts().List(ctx, PostQuery{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 28, total)
		require.Len(t, posts, 10)
		for i := 1; i < len(posts); i++ {
			assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt))
		}
	})

	t.Run("scoped to category", func(t *testing.T) {
		posts, total, err := repo.Posts().List(ctx, PostQuery{CategoryID: first.ID, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		assert.Len(t, posts, 20)

		posts, _, err = repo.Posts().List(ctx, PostQuery{CategoryID: first.ID, Limit: 20, Offset: 20})
		require.NoError(t, err)
		assert.Len(t, posts, 5)
		for _, post := range posts {
			assert.Equal(t, first.ID, post.CategoryID)
		}
	})

	t.Run("offset past the end", func(t *testing.T) {
		posts, total, err := repo.Posts().List(ctx, PostQuery{CategoryID: second.ID, Limit: 10, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, posts)
	})
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	python := createTestCategory(t, repo, "Python")
	createTestCategory(t, repo, "Go")

	err := repo.Categories().Create(ctx, &models.Category{Name: "python"})
	assert.Error(t, err)

	found, err := repo.Categories().GetByName(ctx, "PYTHON")
	require.NoError(t, err)
	assert.Equal(t, python.ID, found.ID)

	_, err = repo.Categories().GetByName(ctx, "Rust")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Categories().GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	categories, err := repo.Categories().List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Go", categories[0].Name)
}

func TestAdminRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Admins().First(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	admin := &models.Admin{Username: "admin", Name: "Grey"}
	require.NoError(t, repo.Admins().Save(ctx, admin))
	assert.Equal(t, 1, admin.ID)

	admin.Name = "Grey Li"
	require.NoError(t, repo.Admins().Save(ctx, admin))
	assert.Equal(t, 1, admin.ID)

	found, err := repo.Admins().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Grey Li", found.Name)

	first, err := repo.Admins().First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", first.Username)

	_, err = repo.Admins().GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryBackupAndLoad(t *testing.T) {
	ctx := context.Background()
	src := newTestRepository(t)
	category := createTestCategory(t, src, "Default")
	post := createTestPost(t, src, category.ID, time.Time{})

	var buf bytes.Buffer
	require.NoError(t, src.Backup(&buf))
	assert.Greater(t, buf.Len(), 0)

	dst := newTestRepository(t)
	require.NoError(t, dst.Load(&buf))

	restored, err := dst.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, restored.Title)

	require.NoError(t, dst.Clear())
	_, err = dst.Posts().GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRepositoryTempDir(t *testing.T) {
	repo, err := NewRepository("")
	require.NoError(t, err)
	assert.True(t, repo.isTestDB)
	assert.NoError(t, repo.Close())
}
