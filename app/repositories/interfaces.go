package repositories

import (
	"context"

	"bluelog/app/models"
)

// PostQuery selects posts. Results are ordered newest first.
type PostQuery struct {
	CategoryID int // zero selects every category
	Limit      int
	Offset     int
}

// CommentQuery selects the comments of one post. Results are ordered
// oldest first.
type CommentQuery struct {
	PostID   int
	Reviewed *bool // nil selects both states
	Limit    int
	Offset   int
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int) (*models.Post, error)
	List(ctx context.Context, q PostQuery) ([]*models.Post, int, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id int) error
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id int) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int) (*models.Comment, error)
	List(ctx context.Context, q CommentQuery) ([]*models.Comment, int, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id int) error
}

// AdminRepository defines the interface for admin data access
type AdminRepository interface {
	Save(ctx context.Context, admin *models.Admin) error
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	First(ctx context.Context) (*models.Admin, error)
}

// Store bundles the repositories of one backing database.
type Store interface {
	Posts() PostRepository
	Categories() CategoryRepository
	Comments() CommentRepository
	Admins() AdminRepository
	Close() error
}

// Bool returns a pointer to b, for CommentQuery.Reviewed.
func Bool(b bool) *bool {
	return &b
}
