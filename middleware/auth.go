package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"inventory/auth"
	"inventory/database"
	"inventory/httperr"
	"inventory/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

type AuthStore interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// SessionToken returns the token from the session cookie, falling back to a
// bearer Authorization header.
func SessionToken(c *gin.Context) string {
	if token := Cookies(c)[auth.CookieName]; token != "" {
		return token
	}
	if token, err := c.Cookie(auth.CookieName); err == nil && token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}

// Protect rejects requests without a valid, non-revoked session and stores the
// authenticated user on the context.
func Protect(store AuthStore, tokens *auth.Tokens) gin.HandlerFunc {
	return httperr.Handle(func(c *gin.Context) error {
		tokenString := SessionToken(c)
		if tokenString == "" {
			return httperr.Unauthorized("Not authorized, please login")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		blacklisted, err := store.IsBlacklisted(ctx, tokenString)
		if err != nil {
			return httperr.Internal("Failed to verify session", err)
		}
		if blacklisted {
			return httperr.Unauthorized("Not authorized, please login")
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			return httperr.Unauthorized("Not authorized, please login")
		}

		userID, err := primitive.ObjectIDFromHex(claims.ID)
		if err != nil {
			return httperr.Unauthorized("Not authorized, please login")
		}

		user, err := store.FindUserByID(ctx, userID)
		if errors.Is(err, database.ErrNotFound) {
			return httperr.Unauthorized("User not found")
		}
		if err != nil {
			return httperr.Internal("Failed to verify session", err)
		}

		c.Set(userKey, user)
		c.Set(tokenKey, tokenString)
		c.Next()
		return nil
	})
}

func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
