package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPostNotFound is returned when looking up a non-existent post.
var ErrPostNotFound = errors.New("post not found")

// Post is an article written by a user.
type Post struct {
	ID     int64
	Title  string
	Body   string
	Author int64 // users.id
}

// Attributes returns the persisted column set of the post.
func (p *Post) Attributes() map[string]any {
	return map[string]any{
		"id":     p.ID,
		"title":  p.Title,
		"body":   p.Body,
		"author": p.Author,
	}
}

// NewPost holds the caller-supplied fields for a post that has not been saved yet.
type NewPost struct {
	Title  string
	Body   string
	Author int64
}

// Normalize trims surrounding whitespace from the title.
func (n NewPost) Normalize() NewPost {
	n.Title = strings.TrimSpace(n.Title)

	return n
}

// Validate reports the first missing or malformed field as ErrValidation.
func (n NewPost) Validate() error {
	switch {
	case n.Title == "":
		return missing("title")
	case strings.TrimSpace(n.Body) == "":
		return missing("body")
	case n.Author == 0:
		return missing("author")
	case n.Author < 0:
		return fmt.Errorf("%w: author %d is not a valid user id", ErrValidation, n.Author)
	}

	return nil
}
