package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCommentNotFound is returned when looking up a non-existent comment.
var ErrCommentNotFound = errors.New("comment not found")

// Comment is a reply by a user to a post.
type Comment struct {
	ID        int64
	Body      string
	PostID    int64
	UserID    int64
	CreatedAt time.Time // Set by the repository on create
	UpdatedAt time.Time // Set by the repository on create and update
}

// Attributes returns the persisted column set of the comment.
func (c *Comment) Attributes() map[string]any {
	return map[string]any{
		"id":         c.ID,
		"user_id":    c.UserID,
		"post_id":    c.PostID,
		"body":       c.Body,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

// NewComment holds the caller-supplied fields for a comment that has not been saved yet.
// Timestamps are not part of it.
type NewComment struct {
	Body   string
	PostID int64
	UserID int64
}

// Validate reports the first missing or malformed field as ErrValidation.
func (n NewComment) Validate() error {
	switch {
	case strings.TrimSpace(n.Body) == "":
		return missing("body")
	case n.PostID == 0:
		return missing("post_id")
	case n.UserID == 0:
		return missing("user_id")
	case n.PostID < 0:
		return fmt.Errorf("%w: post_id %d is not a valid post id", ErrValidation, n.PostID)
	case n.UserID < 0:
		return fmt.Errorf("%w: user_id %d is not a valid user id", ErrValidation, n.UserID)
	}

	return nil
}
