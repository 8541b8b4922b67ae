package core

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseID parses a positive integer identifier.
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(CleanString(s))
	if err != nil {
		return 0, errors.Wrapf(err, "parsing id %q", s)
	}
	if id <= 0 {
		return 0, errors.Errorf("invalid id %d", id)
	}
	return id, nil
}
