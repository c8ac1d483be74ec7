package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/usertheme/internal/validator"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrRejected     = errors.New("stylesheet rejected")
)

// RejectedError carries the server's reasons for refusing a submission.
// It matches ErrRejected.
type RejectedError struct {
	StatusCode int
	Violations []validator.Violation
}

func (e *RejectedError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("stylesheet rejected (%d): %s", e.StatusCode, strings.Join(msgs, "; "))
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
