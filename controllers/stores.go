package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"inventory/httperr"
	"inventory/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const queryTimeout = 5 * time.Second

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error

	ReplaceResetToken(ctx context.Context, token *models.ResetToken) error
	FindValidResetToken(ctx context.Context, hash string, now time.Time) (*models.ResetToken, error)
	DeleteResetToken(ctx context.Context, id primitive.ObjectID) error

	BlacklistToken(ctx context.Context, token string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error)
	FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, upd models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

type ContactStore interface {
	CreateContactMessage(ctx context.Context, msg *models.ContactMessage) error
	MarkContactSent(ctx context.Context, id primitive.ObjectID) error
}

var registerOnce sync.Once

func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
				return primitive.IsValidObjectID(fl.Field().String())
			})
		}
	})
}

type idParam struct {
	ID string `uri:"id" binding:"required,objectid"`
}

func bindID(c *gin.Context) (primitive.ObjectID, error) {
	var p idParam
	if err := c.ShouldBindUri(&p); err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(p.ID)
}

// bind decodes the body by content type. An empty body leaves obj untouched so
// the handler's own required-field checks produce the error message.
func bind(c *gin.Context, obj any) error {
	err := c.ShouldBind(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	return httperr.Wrap(http.StatusBadRequest, "Invalid request body", err)
}

func queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), queryTimeout)
}
