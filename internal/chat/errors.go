package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyTurn  = errors.New("at least one user or assistant message is required")
	ErrClientGone = errors.New("client went away")
)

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError covers unknown restaurants and conversations, including a
// conversation owned by another restaurant.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("reply stream exceeded %s", e.Budget)
}

type PersistenceError struct {
	ConversationID string
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist turn for conversation %s: %v", e.ConversationID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
