package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("review not found")
	ErrValidation    = errors.New("invalid review")
	ErrStorage       = errors.New("review not persisted")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid review: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
