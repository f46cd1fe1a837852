package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"bluelog/app/repositories"
)

var (
	// ErrNotFound covers unknown ids and out-of-range pages.
	ErrNotFound = repositories.ErrNotFound

	ErrCommentsDisabled   = errors.New("comments are disabled")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError carries one message per rejected form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
