package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inventory/httperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
		status  int
		message string
	}{
		{
			name:    "http error",
			handler: httperr.Handle(func(c *gin.Context) error { return httperr.NotFound("Product not found") }),
			status:  http.StatusNotFound,
			message: "Product not found",
		},
		{
			name:    "plain error",
			handler: httperr.Handle(func(c *gin.Context) error { return errors.New("mongo: socket closed") }),
			status:  http.StatusInternalServerError,
			message: "Internal Server Error",
		},
		{
			name:    "internal hides cause",
			handler: httperr.Handle(func(c *gin.Context) error { return httperr.Internal("Failed to fetch products", errors.New("boom")) }),
			status:  http.StatusInternalServerError,
			message: "Failed to fetch products",
		},
		{
			name: "validation error",
			handler: func(c *gin.Context) {
				var in struct {
					Email string `json:"email" binding:"required,email"`
				}
				if err := c.ShouldBindJSON(&in); err != nil {
					httperr.Fail(c, err)
				}
			},
			status:  http.StatusBadRequest,
			message: "Please enter a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine()
			r.POST("/", tt.handler)

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			body := decodeError(t, w)
			if body.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Message, tt.message)
			}
			if body.Stack != nil {
				t.Errorf("stack = %q, want null outside development", *body.Stack)
			}
			if strings.Contains(w.Body.String(), "boom") || strings.Contains(w.Body.String(), "socket") {
				t.Errorf("cause leaked: %s", w.Body.String())
			}
		})
	}
}

func TestErrorHandler_Stack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop(), true))
	r.GET("/", httperr.Handle(func(c *gin.Context) error {
		return httperr.Internal("Failed", errors.New("boom"))
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	body := decodeError(t, w)
	if body.Stack == nil || !strings.Contains(*body.Stack, "error_test.go") {
		t.Errorf("stack = %v, want a trace in development", body.Stack)
	}
}

func TestErrorHandler_AlreadyWritten(t *testing.T) {
	r := newTestEngine()
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusAccepted, "partial")
		_ = c.Error(errors.New("after write"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusAccepted || w.Body.String() != "partial" {
		t.Errorf("response = %d %q, want untouched", w.Code, w.Body.String())
	}
}

func TestErrorHandler_NoError(t *testing.T) {
	r := newTestEngine()
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Home Page") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK || w.Body.String() != "Home Page" {
		t.Errorf("response = %d %q", w.Code, w.Body.String())
	}
}
