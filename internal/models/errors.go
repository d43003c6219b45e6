package models

import "errors"

// ErrInvalidSubmission marks caller input that cannot be accepted.
var ErrInvalidSubmission = errors.New("invalid submission")
