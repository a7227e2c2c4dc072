// Package generator produces natural-language answers from a prompt
// via a chat completion backend.
package generator

import (
	"context"
	"errors"
	"fmt"
)

// Category classifies a generation failure for retry and reporting
// decisions upstream.
type Category string

const (
	CategoryRateLimited        Category = "rate_limited"
	CategoryInvalidRequest     Category = "invalid_request"
	CategoryServiceUnavailable Category = "service_unavailable"
	CategoryTimeout            Category = "timeout"
)

// Request carries the system and user messages for one completion.
type Request struct {
	System string
	User   string
}

// Generator turns a prompt into a single completion.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// Error is a classified generation failure.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generator: %s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify wraps err with the given category.
func Classify(cat Category, err error) error {
	return &Error{Category: cat, Err: err}
}

// CategoryOf returns the category attached to err, or "" if none.
func CategoryOf(err error) Category {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

// Retryable reports whether a failed generation is worth retrying.
// Invalid requests never are: the same prompt will fail the same way.
func Retryable(err error) bool {
	switch CategoryOf(err) {
	case CategoryRateLimited, CategoryServiceUnavailable, CategoryTimeout:
		return true
	}
	return false
}
