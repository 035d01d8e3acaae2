package pathutil

import (
	"errors"
	"strconv"
)

// ErrInvalidID rejects a path segment that is not a positive integer.
var ErrInvalidID = errors.New("invalid id: must be a positive integer")

// ParseID parses a path segment such as r.PathValue("id") into an article ID.
func ParseID(segment string) (int64, error) {
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
