// internal/domain/errs/errs.go

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the coarse failure category a caller can branch on
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindNotAllowed Kind = "not_allowed"
	KindBadValues  Kind = "bad_values"
)

// Code identifies the specific failure within a kind
type Code string

const (
	CodeRequestNotFound  Code = "request_not_found"
	CodeMeetingNotFound  Code = "meeting_not_found"
	CodeSessionNotFound  Code = "session_not_found"
	CodePieceNotFound    Code = "piece_not_found"
	CodePostNotFound     Code = "post_not_found"
	CodeReactionNotFound Code = "reaction_not_found"

	CodeAlreadyRequesting  Code = "already_requesting"
	CodeAlreadyMeeting     Code = "already_meeting"
	CodeAlreadyContributed Code = "already_contributed"
	CodeNotAMember         Code = "not_a_member"
	CodeNotComplete        Code = "session_not_complete"
	CodeNotAuthor          Code = "not_author"
	CodePieceAttached      Code = "piece_attached"
	CodePieceInSession     Code = "piece_in_session"

	CodeInvalidLocation Code = "invalid_location"
	CodeInvalidChoice   Code = "invalid_choice"
	CodeInvalidInput    Code = "invalid_input"
)

// Error is the tagged failure returned by every domain operation. User and ID
// carry the offending identifiers so a presentation layer can render them.
type Error struct {
	Kind   Kind
	Code   Code
	User   string
	ID     string
	Detail string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	parts := []string{string(e.Code)}
	if e.User != "" {
		parts = append(parts, "user="+e.User)
	}
	if e.ID != "" {
		parts = append(parts, "id="+e.ID)
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return strings.Join(parts, " ")
}

// Is matches on Code when the target has one, otherwise on Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	if t.Code != "" {
		return t.Code == e.Code
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks by kind
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrNotAllowed = &Error{Kind: KindNotAllowed}
	ErrBadValues  = &Error{Kind: KindBadValues}
)

// NotFound builds a not-found failure
func NotFound(code Code, user, id string) *Error {
	return &Error{Kind: KindNotFound, Code: code, User: user, ID: id}
}

// NotAllowed builds an exclusivity or permission failure
func NotAllowed(code Code, user, id string) *Error {
	return &Error{Kind: KindNotAllowed, Code: code, User: user, ID: id}
}

// BadValues builds an input validation failure
func BadValues(code Code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadValues, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// As extracts the domain error from err, if any
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}
