// Package httperr carries HTTP status information on errors returned by
// route handlers so a single terminal handler can render them.
package httperr

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.Err != nil {
		fmt.Fprintf(s, "%s: %+v", e.Message, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg, Err: errors.New(msg)}
}

func Wrap(status int, msg string, err error) *Error {
	return &Error{Status: status, Message: msg, Err: errors.WithStack(err)}
}

func BadRequest(msg string) *Error   { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func NotFound(msg string) *Error     { return New(http.StatusNotFound, msg) }

func Internal(msg string, err error) *Error {
	return Wrap(http.StatusInternalServerError, msg, err)
}

// HandlerFunc is a gin handler that reports failure by returning an error
// instead of writing the response itself.
type HandlerFunc func(c *gin.Context) error

// Handle adapts h to gin. A returned error is attached to the context and the
// chain is aborted; rendering is left to the terminal error handler.
func Handle(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
