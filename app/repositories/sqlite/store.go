package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bluelog/app/models"
	"bluelog/app/repositories"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    category_id INTEGER NOT NULL REFERENCES categories(id),
    can_comment BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY,
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    replied_id INTEGER,
    author TEXT NOT NULL,
    email TEXT NOT NULL,
    site TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    from_admin BOOLEAN NOT NULL DEFAULT 0,
    reviewed BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS admins (
    id INTEGER PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash BLOB NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    blog_title TEXT NOT NULL DEFAULT '',
    blog_sub_title TEXT NOT NULL DEFAULT '',
    about TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category_id, created_at);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, reviewed, created_at);
`

// Store implements repositories.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database file at path. The special
// path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	dsn += "?_foreign_keys=on"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Posts() repositories.PostRepository           { return &postRepository{db: s.db} }
func (s *Store) Categories() repositories.CategoryRepository { return &categoryRepository{db: s.db} }
func (s *Store) Comments() repositories.CommentRepository     { return &commentRepository{db: s.db} }
func (s *Store) Admins() repositories.AdminRepository         { return &adminRepository{db: s.db} }

func (s *Store) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	return err
}

type categoryRepository struct {
	db *sql.DB
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	category.BeforeCreate()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, created_at) VALUES (?, ?)`, category.Name, category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	category.ID = int(id)
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE name = ? COLLATE NOCASE`, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type postRepository struct {
	db *sql.DB
}

const postColumns = `id, title, body, category_id, can_comment, created_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.CategoryID, &p.CanComment, &p.CreatedAt)
	return p, err
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	post.BeforeCreate()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (title, body, category_id, can_comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		post.Title, post.Body, post.CategoryID, post.CanComment, post.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("category %d: %w", post.CategoryID, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	post.ID = int(id)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *postRepository) List(ctx context.Context, q repositories.PostQuery) ([]*models.Post, int, error) {
	where := ""
	args := []any{}
	if q.CategoryID != 0 {
		where = ` WHERE category_id = ?`
		args = append(args, q.CategoryID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, category_id = ?, can_comment = ? WHERE id = ?`,
		post.Title, post.Body, post.CategoryID, post.CanComment, post.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireRow(res)
}

func (r *postRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(res)
}

type commentRepository struct {
	db *sql.DB
}

const commentColumns = `id, post_id, COALESCE(replied_id, 0), author, email, site, body, from_admin, reviewed, created_at`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(&c.ID, &c.PostID, &c.RepliedID, &c.Author, &c.Email, &c.Site, &c.Body,
		&c.FromAdmin, &c.Reviewed, &c.CreatedAt)
	return c, err
}

func nullableID(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

// Create inserts the comment in a single statement, so all columns and
// both references are written together or not at all.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (post_id, replied_id, author, email, site, body, from_admin, reviewed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.PostID, nullableID(comment.RepliedID), comment.Author, comment.Email, comment.Site,
		comment.Body, comment.FromAdmin, comment.Reviewed, comment.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("post %d: %w", comment.PostID, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	comment.ID = int(id)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *commentRepository) List(ctx context.Context, q repositories.CommentQuery) ([]*models.Comment, int, error) {
	var conds []string
	args := []any{}
	if q.PostID != 0 {
		conds = append(conds, "post_id = ?")
		args = append(args, q.PostID)
	}
	if q.Reviewed != nil {
		conds = append(conds, "reviewed = ?")
		args = append(args, *q.Reviewed)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments`+where+` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, total, rows.Err()
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE comments SET replied_id = ?, author = ?, email = ?, site = ?, body = ?, from_admin = ?, reviewed = ?
		WHERE id = ? AND post_id = ?`,
		nullableID(comment.RepliedID), comment.Author, comment.Email, comment.Site, comment.Body,
		comment.FromAdmin, comment.Reviewed, comment.ID, comment.PostID)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return requireRow(res)
}

func (r *commentRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return requireRow(res)
}

type adminRepository struct {
	db *sql.DB
}

const adminColumns = `id, username, password_hash, name, blog_title, blog_sub_title, about`

func scanAdmin(row interface{ Scan(...any) error }) (*models.Admin, error) {
	a := &models.Admin{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.BlogTitle, &a.BlogSubTitle, &a.About)
	return a, err
}

func (r *adminRepository) Save(ctx context.Context, admin *models.Admin) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO admins (username, password_hash, name, blog_title, blog_sub_title, about)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			password_hash = excluded.password_hash,
			name = excluded.name,
			blog_title = excluded.blog_title,
			blog_sub_title = excluded.blog_sub_title,
			about = excluded.about
		RETURNING id`,
		admin.Username, admin.PasswordHash, admin.Name, admin.BlogTitle, admin.BlogSubTitle, admin.About,
	).Scan(&admin.ID)
	if err != nil {
		return fmt.Errorf("failed to save admin: %w", err)
	}
	return nil
}

func (r *adminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE username = ?`, username))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *adminRepository) First(ctx context.Context) (*models.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY id LIMIT 1`))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
