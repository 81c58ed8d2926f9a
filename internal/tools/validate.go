package tools

import (
	"regexp"
	"strings"
)

var (
	packageNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	publisherIDPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)
)

const maxQueryLength = 80

// validatePackageName implements spec.md §4.5's bit-exact rule.
func validatePackageName(field, value string) *FieldError {
	if !packageNamePattern.MatchString(value) {
		return &FieldError{Field: field, Message: "must match ^[a-z0-9_]+$"}
	}
	return nil
}

func validatePublisherID(field, value string) *FieldError {
	if !publisherIDPattern.MatchString(value) {
		return &FieldError{Field: field, Message: "must match ^[a-z0-9._-]+$"}
	}
	return nil
}

func validateQuery(field, value string) *FieldError {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return &FieldError{Field: field, Message: "must not be empty"}
	}
	if len(trimmed) > maxQueryLength {
		return &FieldError{Field: field, Message: "must be at most 80 characters"}
	}
	return nil
}

// clampTake bounds the "take" pagination parameter to [1, 200], applying
// the default of 50 when unset (zero).
func clampTake(take int) int {
	if take == 0 {
		return 50
	}
	if take < 1 {
		return 1
	}
	if take > 200 {
		return 200
	}
	return take
}
