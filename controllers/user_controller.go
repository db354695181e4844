package controllers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"inventory/auth"
	"inventory/database"
	"inventory/httperr"
	"inventory/mailer"
	"inventory/middleware"
	"inventory/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost     = 10
	minPasswordLen = 6
	resetTokenTTL  = 30 * time.Minute
)

type UserController struct {
	users       UserStore
	tokens      *auth.Tokens
	mail        mailer.Mailer
	frontendURL string
	now         func() time.Time
}

func NewUserController(users UserStore, tokens *auth.Tokens, mail mailer.Mailer, frontendURL string) *UserController {
	return &UserController{
		users:       users,
		tokens:      tokens,
		mail:        mail,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

func userResponse(user *models.User, token string) gin.H {
	resp := gin.H{
		"_id":   user.ID.Hex(),
		"name":  user.Name,
		"email": user.Email,
		"photo": user.Photo,
		"phone": user.Phone,
		"bio":   user.Bio,
	}
	if token != "" {
		resp["token"] = token
	}
	return resp
}

func (uc *UserController) Register(c *gin.Context) error {
	var input struct {
		Name     string `json:"name" form:"name"`
		Email    string `json:"email" form:"email" binding:"omitempty,email"`
		Password string `json:"password" form:"password"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return httperr.BadRequest("Please fill in all required fields")
	}
	if len(input.Password) < minPasswordLen {
		return httperr.BadRequest("Password must be at least 6 characters")
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	_, err := uc.users.FindUserByEmail(ctx, input.Email)
	if err == nil {
		return httperr.BadRequest("Email has already been registered")
	}
	if !errors.Is(err, database.ErrNotFound) {
		return httperr.Internal("Failed to register", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return httperr.Internal("Failed to register", err)
	}

	now := uc.now()
	user := &models.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  string(hashed),
		Photo:     models.DefaultPhoto,
		Phone:     "+234",
		Bio:       "bio",
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.users.CreateUser(ctx, user)
	if errors.Is(err, database.ErrDuplicate) {
		return httperr.BadRequest("Email has already been registered")
	}
	if err != nil {
		return httperr.Internal("Failed to register", err)
	}

	token, exp, err := uc.tokens.Issue(user.ID.Hex())
	if err != nil {
		return httperr.Internal("Failed to create session", err)
	}
	auth.SetCookie(c, token, exp)

	c.JSON(http.StatusCreated, userResponse(user, token))
	return nil
}

func (uc *UserController) Login(c *gin.Context) error {
	var input struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Password == "" {
		return httperr.BadRequest("Please add email and password")
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	user, err := uc.users.FindUserByEmail(ctx, input.Email)
	if errors.Is(err, database.ErrNotFound) {
		return httperr.BadRequest("User not found, please signup")
	}
	if err != nil {
		return httperr.Internal("Failed to login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return httperr.BadRequest("Invalid email or password")
	}

	token, exp, err := uc.tokens.Issue(user.ID.Hex())
	if err != nil {
		return httperr.Internal("Failed to create session", err)
	}
	auth.SetCookie(c, token, exp)

	c.JSON(http.StatusOK, userResponse(user, token))
	return nil
}

// Logout revokes the presented token until it would have expired anyway.
func (uc *UserController) Logout(c *gin.Context) error {
	if tokenString := middleware.SessionToken(c); tokenString != "" {
		if claims, err := uc.tokens.Parse(tokenString); err == nil && claims.ExpiresAt != nil {
			ctx, cancel := queryContext(c)
			defer cancel()

			if err := uc.users.BlacklistToken(ctx, tokenString, claims.ExpiresAt.Time); err != nil {
				return httperr.Internal("Failed to logout", err)
			}
		}
	}

	auth.ClearCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully Logged Out"})
	return nil
}

func (uc *UserController) GetUser(c *gin.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return httperr.BadRequest("User Not Found")
	}
	c.JSON(http.StatusOK, userResponse(user, ""))
	return nil
}

func (uc *UserController) LoggedIn(c *gin.Context) error {
	tokenString := middleware.SessionToken(c)
	if tokenString == "" {
		c.JSON(http.StatusOK, false)
		return nil
	}

	if _, err := uc.tokens.Parse(tokenString); err != nil {
		c.JSON(http.StatusOK, false)
		return nil
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	blacklisted, err := uc.users.IsBlacklisted(ctx, tokenString)
	if err != nil {
		return httperr.Internal("Failed to verify session", err)
	}
	c.JSON(http.StatusOK, !blacklisted)
	return nil
}

func (uc *UserController) UpdateUser(c *gin.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return httperr.NotFound("User not found")
	}

	var input struct {
		Name  *string `json:"name" form:"name"`
		Phone *string `json:"phone" form:"phone"`
		Bio   *string `json:"bio" form:"bio"`
		Photo *string `json:"photo" form:"photo"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return httperr.BadRequest("Please add a name")
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	updated, err := uc.users.UpdateProfile(ctx, user.ID, models.ProfileUpdate{
		Name:  input.Name,
		Phone: input.Phone,
		Bio:   input.Bio,
		Photo: input.Photo,
	})
	if errors.Is(err, database.ErrNotFound) {
		return httperr.NotFound("User not found")
	}
	if err != nil {
		return httperr.Internal("Failed to update user", err)
	}

	c.JSON(http.StatusOK, userResponse(updated, ""))
	return nil
}

func (uc *UserController) ChangePassword(c *gin.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return httperr.BadRequest("User not found, please signup")
	}

	var input struct {
		OldPassword string `json:"oldPassword" form:"oldPassword"`
		Password    string `json:"password" form:"password"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}
	if input.OldPassword == "" || input.Password == "" {
		return httperr.BadRequest("Please add old and new password")
	}
	if len(input.Password) < minPasswordLen {
		return httperr.BadRequest("Password must be at least 6 characters")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.OldPassword)); err != nil {
		return httperr.BadRequest("Old password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return httperr.Internal("Failed to change password", err)
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	if err := uc.users.SetPassword(ctx, user.ID, string(hashed)); err != nil {
		return httperr.Internal("Failed to change password", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password change successful"})
	return nil
}

func (uc *UserController) ForgotPassword(c *gin.Context) error {
	var input struct {
		Email string `json:"email" form:"email"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	user, err := uc.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, database.ErrNotFound) {
		return httperr.NotFound("User does not exist")
	}
	if err != nil {
		return httperr.Internal("Failed to look up user", err)
	}

	resetToken, err := newResetToken(user)
	if err != nil {
		return httperr.Internal("Failed to create reset token", err)
	}

	now := uc.now()
	err = uc.users.ReplaceResetToken(ctx, &models.ResetToken{
		UserID:    user.ID,
		Token:     hashToken(resetToken),
		CreatedAt: now,
		ExpiresAt: now.Add(resetTokenTTL),
	})
	if err != nil {
		return httperr.Internal("Failed to create reset token", err)
	}

	resetURL := fmt.Sprintf("%s/resetpassword/%s", uc.frontendURL, resetToken)
	err = uc.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Password Reset Request",
		HTML:    resetEmailHTML(user.Name, resetURL),
	})
	if err != nil {
		return httperr.Internal("Email not sent, please try again", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reset Email Sent"})
	return nil
}

func (uc *UserController) ResetPassword(c *gin.Context) error {
	var input struct {
		Password string `json:"password" form:"password"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}
	if input.Password == "" {
		return httperr.BadRequest("Please add a new password")
	}
	if len(input.Password) < minPasswordLen {
		return httperr.BadRequest("Password must be at least 6 characters")
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	token, err := uc.users.FindValidResetToken(ctx, hashToken(c.Param("resetToken")), uc.now())
	if errors.Is(err, database.ErrNotFound) {
		return httperr.NotFound("Invalid or Expired Token")
	}
	if err != nil {
		return httperr.Internal("Failed to reset password", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return httperr.Internal("Failed to reset password", err)
	}
	if err := uc.users.SetPassword(ctx, token.UserID, string(hashed)); err != nil {
		return httperr.Internal("Failed to reset password", err)
	}
	if err := uc.users.DeleteResetToken(ctx, token.ID); err != nil {
		return httperr.Internal("Failed to reset password", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password Reset Successful, Please Login"})
	return nil
}

func newResetToken(user *models.User) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + user.ID.Hex(), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func resetEmailHTML(name, url string) string {
	return fmt.Sprintf(`<h2>Hello %s</h2>
<p>Please use the url below to reset your password</p>
<p>This reset link is valid for only 30 minutes.</p>
<a href="%s" clicktracking=off>%s</a>
<p>Regards...</p>
<p>Inventory Team</p>`, html.EscapeString(name), url, url)
}
