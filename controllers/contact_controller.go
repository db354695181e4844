package controllers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"inventory/httperr"
	"inventory/mailer"
	"inventory/middleware"
	"inventory/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContactController struct {
	contacts     ContactStore
	mail         mailer.Mailer
	supportEmail string
	log          *zap.Logger
	now          func() time.Time
}

func NewContactController(contacts ContactStore, mail mailer.Mailer, supportEmail string, log *zap.Logger) *ContactController {
	return &ContactController{
		contacts:     contacts,
		mail:         mail,
		supportEmail: supportEmail,
		log:          log,
		now:          time.Now,
	}
}

// ContactUs stores the message and forwards it to the support inbox with the
// sender as Reply-To.
func (cc *ContactController) ContactUs(c *gin.Context) error {
	user := middleware.CurrentUser(c)

	var input struct {
		Subject string `json:"subject" form:"subject"`
		Message string `json:"message" form:"message"`
	}
	if err := bind(c, &input); err != nil {
		return err
	}

	input.Subject = strings.TrimSpace(input.Subject)
	input.Message = strings.TrimSpace(input.Message)
	if input.Subject == "" || input.Message == "" {
		return httperr.BadRequest("Please add subject and message")
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	msg := &models.ContactMessage{
		UserID:    user.ID,
		Email:     user.Email,
		Subject:   input.Subject,
		Message:   input.Message,
		CreatedAt: cc.now(),
	}
	if err := cc.contacts.CreateContactMessage(ctx, msg); err != nil {
		return httperr.Internal("Failed to save message", err)
	}

	err := cc.mail.Send(ctx, mailer.Message{
		To:      cc.supportEmail,
		From:    cc.supportEmail,
		ReplyTo: user.Email,
		Subject: input.Subject,
		HTML:    contactEmailHTML(user, input.Message),
	})
	if err != nil {
		return httperr.Internal("Email not sent, please try again", err)
	}

	if err := cc.contacts.MarkContactSent(ctx, msg.ID); err != nil {
		cc.log.Warn("contact message sent but not marked", zap.String("id", msg.ID.Hex()), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email Sent"})
	return nil
}

func contactEmailHTML(user *models.User, message string) string {
	return fmt.Sprintf("<p>%s</p><p>From: %s &lt;%s&gt;</p>",
		html.EscapeString(message), html.EscapeString(user.Name), html.EscapeString(user.Email))
}
