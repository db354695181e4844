package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"inventory/httperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error recorded on the context as
// {"message": ..., "stack": ...}. It runs its downstream handlers first, so it
// has to be the outermost stage to see errors from all of them. Stacks are
// only included when showStack is set.
func ErrorHandler(log *zap.Logger, showStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		last := c.Errors.Last()
		status, message := classify(last)

		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", status),
				zap.Error(last.Err),
			)
		} else {
			log.Debug("request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", status),
				zap.String("reason", last.Err.Error()),
			)
		}

		if c.Writer.Written() {
			return
		}

		var stack any
		if showStack {
			stack = fmt.Sprintf("%+v", last.Err)
		}
		c.JSON(status, gin.H{"message": message, "stack": stack})
	}
}

func classify(e *gin.Error) (int, string) {
	var he *httperr.Error
	if errors.As(e.Err, &he) {
		return he.Status, he.Message
	}

	var tooLarge *http.MaxBytesError
	if errors.As(e.Err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "request entity too large"
	}

	var verrs validator.ValidationErrors
	if errors.As(e.Err, &verrs) {
		return http.StatusBadRequest, validationMessage(verrs)
	}

	if e.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, "Invalid request body"
	}

	return http.StatusInternalServerError, "Internal Server Error"
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "min":
			if fe.Kind() == reflect.String {
				parts = append(parts, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
			} else {
				parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
			}
		case "email":
			parts = append(parts, "Please enter a valid email")
		case "objectid":
			parts = append(parts, fe.Field()+" is not a valid id")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, ", ")
}
