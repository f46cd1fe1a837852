package services

import (
	"context"
	"errors"
	"fmt"

	"bluelog/app/models"
	"bluelog/app/repositories"

	"github.com/sirupsen/logrus"
)

// PostService serves the public, read-only side of the blog: paginated
// posts, categories and approved comments.
type PostService struct {
	store repositories.Store
	log   logrus.FieldLogger
}

func NewPostService(store repositories.Store, log logrus.FieldLogger) *PostService {
	return &PostService{
		store: store,
		log:   log.WithField("service", "posts"),
	}
}

// checkPage rejects positions that cannot name a page.
func checkPage(page, perPage int) error {
	if page < 1 || perPage < 1 {
		return fmt.Errorf("page %d of size %d: %w", page, perPage, ErrNotFound)
	}
	return nil
}

// checkWindow rejects a page past the end. The first page of an empty
// collection is valid.
func checkWindow(page, count int) error {
	if count == 0 && page != 1 {
		return fmt.Errorf("page %d: %w", page, ErrNotFound)
	}
	return nil
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context, page, perPage int) (*models.Page[*models.Post], error) {
	return s.listPosts(ctx, 0, page, perPage)
}

// ListPostsByCategory returns the posts of one category, newest first.
func (s *PostService) ListPostsByCategory(ctx context.Context, categoryID, page, perPage int) (*models.Category, *models.Page[*models.Post], error) {
	category, err := s.store.Categories().GetByID(ctx, categoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("category %d: %w", categoryID, err)
	}

	posts, err := s.listPosts(ctx, categoryID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	return category, posts, nil
}

func (s *PostService) listPosts(ctx context.Context, categoryID, page, perPage int) (*models.Page[*models.Post], error) {
	if err := checkPage(page, perPage); err != nil {
		return nil, err
	}

	posts, total, err := s.store.Posts().List(ctx, repositories.PostQuery{
		CategoryID: categoryID,
		Limit:      perPage,
		Offset:     models.Offset(page, perPage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if err := checkWindow(page, len(posts)); err != nil {
		return nil, err
	}

	if err := s.attachCategories(ctx, posts); err != nil {
		return nil, err
	}
	return models.NewPage(posts, page, perPage, total), nil
}

func (s *PostService) attachCategories(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	categories, err := s.store.Categories().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	byID := make(map[int]*models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	for _, post := range posts {
		if c, ok := byID[post.CategoryID]; ok {
			post.Category = c
		}
	}
	return nil
}

// GetPost returns one post with its category attached.
func (s *PostService) GetPost(ctx context.Context, id int) (*models.Post, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", id, err)
	}

	category, err := s.store.Categories().GetByID(ctx, post.CategoryID)
	switch {
	case err == nil:
		post.Category = category
	case errors.Is(err, repositories.ErrNotFound):
		s.log.WithField("post_id", id).Warn("post references a missing category")
	default:
		return nil, err
	}
	return post, nil
}

// ListApprovedComments returns the reviewed comments of a post, oldest first.
// Unreviewed comments are never part of the result.
func (s *PostService) ListApprovedComments(ctx context.Context, postID, page, perPage int) (*models.Page[*models.Comment], error) {
	if _, err := s.store.Posts().GetByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("post %d: %w", postID, err)
	}
	if err := checkPage(page, perPage); err != nil {
		return nil, err
	}

	comments, total, err := s.store.Comments().List(ctx, repositories.CommentQuery{
		PostID:   postID,
		Reviewed: repositories.Bool(true),
		Limit:    perPage,
		Offset:   models.Offset(page, perPage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if err := checkWindow(page, len(comments)); err != nil {
		return nil, err
	}
	return models.NewPage(comments, page, perPage, total), nil
}

// RepliedTo resolves the reply targets of comments, keyed by target id.
// Targets that no longer exist are left out.
func (s *PostService) RepliedTo(ctx context.Context, comments []*models.Comment) (map[int]*models.Comment, error) {
	targets := make(map[int]*models.Comment)
	for _, c := range comments {
		if !c.IsReply() {
			continue
		}
		if _, done := targets[c.RepliedID]; done {
			continue
		}

		target, err := s.store.Comments().GetByID(ctx, c.RepliedID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		targets[target.ID] = target
	}
	return targets, nil
}

func (s *PostService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.store.Categories().List(ctx)
}

// Profile returns the blog owner, used for the about page and the header.
func (s *PostService) Profile(ctx context.Context) (*models.Admin, error) {
	return s.store.Admins().First(ctx)
}
