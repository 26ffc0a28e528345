// Package service implements the lifecycle managers: every remote-callable
// operation on groups, memberships, and expenses lives here. Mutating
// operations consult the authz engine first; the managers own all writes.
package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rthakur/expenso/internal/errs"
)

const (
	maxGroupNameLen        = 100
	maxGroupDescriptionLen = 500
)

// validateID rejects malformed identifiers before any store access.
func validateID(id, what string) error {
	if uuid.Validate(id) != nil {
		return errs.Validation("invalid %s ID format", what)
	}
	return nil
}

// validateGroupName trims and checks the name, returning the trimmed value.
// Limits count characters, not bytes, so multibyte names get the full 100.
func validateGroupName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errs.Validation("group name is required")
	}
	if utf8.RuneCountInString(trimmed) > maxGroupNameLen {
		return "", errs.Validation("group name must be %d characters or less", maxGroupNameLen)
	}
	return trimmed, nil
}

// validateGroupDescription trims and checks the description.
func validateGroupDescription(description string) (string, error) {
	trimmed := strings.TrimSpace(description)
	if utf8.RuneCountInString(trimmed) > maxGroupDescriptionLen {
		return "", errs.Validation("description must be %d characters or less", maxGroupDescriptionLen)
	}
	return trimmed, nil
}

// validateDate requires a zero-padded ISO date so lexicographic range
// queries order correctly.
func validateDate(date, what string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return errs.Validation("%s must be a date in YYYY-MM-DD form", what)
	}
	return nil
}
