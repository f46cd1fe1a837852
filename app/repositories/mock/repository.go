package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bluelog/app/models"
	"bluelog/app/repositories"
)

// Store is an in-memory repositories.Store for tests.
type Store struct {
	posts      *PostRepository
	categories *CategoryRepository
	comments   *CommentRepository
	admins     *AdminRepository
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		posts:      NewPostRepository(),
		categories: NewCategoryRepository(),
		comments:   NewCommentRepository(),
		admins:     NewAdminRepository(),
	}
}

func (s *Store) Posts() repositories.PostRepository           { return s.posts }
func (s *Store) Categories() repositories.CategoryRepository { return s.categories }
func (s *Store) Comments() repositories.CommentRepository     { return s.comments }
func (s *Store) Admins() repositories.AdminRepository         { return s.admins }
func (s *Store) Close() error                                 { return nil }

// CommentMock returns the concrete comment repository.
func (s *Store) CommentMock() *CommentRepository { return s.comments }

type PostRepository struct {
	posts  map[int]*models.Post
	nextID int
	mutex  sync.RWMutex
}

type CategoryRepository struct {
	categories map[int]*models.Category
	nextID     int
	mutex      sync.RWMutex
}

type CommentRepository struct {
	comments map[int]*models.Comment
	nextID   int
	mutex    sync.RWMutex

	// CreateErr, when set, is returned by Create without storing anything.
	CreateErr error
}

type AdminRepository struct {
	admins map[string]*models.Admin
	nextID int
	mutex  sync.RWMutex
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:  make(map[int]*models.Post),
		nextID: 1,
	}
}

func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{
		categories: make(map[int]*models.Category),
		nextID:     1,
	}
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{
		comments: make(map[int]*models.Comment),
		nextID:   1,
	}
}

func NewAdminRepository() *AdminRepository {
	return &AdminRepository{
		admins: make(map[string]*models.Admin),
		nextID: 1,
	}
}

// PostRepository implementation
func (m *PostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post.ID = m.nextID
	m.nextID++
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	found := *post
	return &found, nil
}

func (m *PostRepository) Update(ctx context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[post.ID]; !exists {
		return repositories.ErrNotFound
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) Delete(ctx context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *PostRepository) List(ctx context.Context, q repositories.PostQuery) ([]*models.Post, int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var posts []*models.Post
	for _, post := range m.posts {
		if q.CategoryID != 0 && post.CategoryID != q.CategoryID {
			continue
		}
		found := *post
		posts = append(posts, &found)
	}
	repositories.SortPosts(posts)
	return repositories.Window(posts, q.Limit, q.Offset), len(posts), nil
}

// CategoryRepository implementation
func (m *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return fmt.Errorf("category %q already exists", category.Name)
		}
	}
	category.ID = m.nextID
	m.nextID++
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *CategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	category, exists := m.categories[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	found := *category
	return &found, nil
}

func (m *CategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, category := range m.categories {
		if strings.EqualFold(category.Name, name) {
			found := *category
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var categories []*models.Category
	for id := 1; id < m.nextID; id++ {
		if category, exists := m.categories[id]; exists {
			found := *category
			categories = append(categories, &found)
		}
	}
	return categories, nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	comment.ID = m.nextID
	m.nextID++
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *CommentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	found := *comment
	return &found, nil
}

func (m *CommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[comment.ID]; !exists {
		return repositories.ErrNotFound
	}
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *CommentRepository) Delete(ctx context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *CommentRepository) List(ctx context.Context, q repositories.CommentQuery) ([]*models.Comment, int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var comments []*models.Comment
	for _, comment := range m.comments {
		found := *comment
		comments = append(comments, &found)
	}
	comments = repositories.FilterComments(comments, q)
	repositories.SortComments(comments)
	return repositories.Window(comments, q.Limit, q.Offset), len(comments), nil
}

// Len returns the number of stored comments.
func (m *CommentRepository) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.comments)
}

// AdminRepository implementation
func (m *AdminRepository) Save(ctx context.Context, admin *models.Admin) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, exists := m.admins[admin.Username]; exists {
		admin.ID = existing.ID
	} else {
		admin.ID = m.nextID
		m.nextID++
	}
	stored := *admin
	m.admins[admin.Username] = &stored
	return nil
}

func (m *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	admin, exists := m.admins[username]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	found := *admin
	return &found, nil
}

func (m *AdminRepository) First(ctx context.Context) (*models.Admin, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var first *models.Admin
	for _, admin := range m.admins {
		if first == nil || admin.ID < first.ID {
			first = admin
		}
	}
	if first == nil {
		return nil, repositories.ErrNotFound
	}
	found := *first
	return &found, nil
}
