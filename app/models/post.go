package models

import (
	"errors"
	"time"
)

// BeforeCreate sets up any necessary fields before creation
func (p *Post) BeforeCreate() {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
}

// SetCategory moves the post into the given category
func (p *Post) SetCategory(category *Category) error {
	if category == nil {
		return errors.New("category cannot be nil")
	}

	p.Category = category
	p.CategoryID = category.ID
	return nil
}

// AddComment adds a comment to the post
func (p *Post) AddComment(comment *Comment) error {
	if comment == nil {
		return errors.New("comment cannot be nil")
	}

	comment.PostID = p.ID
	p.Comments = append(p.Comments, comment)
	return nil
}

// BeforeCreate stamps the creation time.
func (c *Category) BeforeCreate() {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
}
