package models

import "time"

// Category groups posts. A post belongs to exactly one category.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Post represents a blog post.
type Post struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	CategoryID int        `json:"category_id"`
	CanComment bool       `json:"can_comment"`
	CreatedAt  time.Time  `json:"timestamp"`
	Category   *Category  `json:"category,omitempty"`
	Comments   []*Comment `json:"-"`
}

// Comment represents a comment on a blog post. RepliedID is a weak
// reference to the comment this one answers; zero means top-level.
type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	RepliedID int       `json:"replied_id,omitempty"`
	Author    string    `json:"author"`
	Email     string    `json:"-"`
	Site      string    `json:"site,omitempty"`
	Body      string    `json:"body"`
	FromAdmin bool      `json:"from_admin"`
	Reviewed  bool      `json:"reviewed"`
	CreatedAt time.Time `json:"timestamp"`
}

// Admin is the single blog owner.
type Admin struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash []byte `json:"password_hash"`
	Name         string `json:"name"`
	BlogTitle    string `json:"blog_title"`
	BlogSubTitle string `json:"blog_sub_title"`
	About        string `json:"about"`
}
