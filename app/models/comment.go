package models

import (
	"errors"
	"time"
)

// BeforeCreate sets up any necessary fields before creation
func (c *Comment) BeforeCreate() {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
}

// SetPost sets the parent post and updates the PostID
func (c *Comment) SetPost(post *Post) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}

	c.PostID = post.ID
	return nil
}

// SetReplied threads the comment under target. Both must belong to the
// same post.
func (c *Comment) SetReplied(target *Comment) error {
	if target == nil {
		return errors.New("replied comment cannot be nil")
	}
	if target.PostID != c.PostID {
		return errors.New("replied comment belongs to another post")
	}

	c.RepliedID = target.ID
	return nil
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.RepliedID != 0
}
