package activity

import "errors"

// ErrInvalidInput indicates an invalid activity entry or filter.
var ErrInvalidInput = errors.New("invalid activity input")
