package services

import (
	"errors"
	"fmt"
)

// ErrValidation wraps input that fails catalog validation.
var ErrValidation = errors.New("validation failed")

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInvalid           Kind = "invalid"
	KindConflict          Kind = "conflict"
	KindUnavailable       Kind = "unavailable"
)

// Rejection is a business refusal. Balance is the caller's balance at the
// time of the refusal when the operation got far enough to read it.
type Rejection struct {
	Kind    Kind
	Message string
	Balance int64
}

func (r *Rejection) Error() string { return r.Message }

func reject(kind Kind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps a *Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
