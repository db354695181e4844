package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"inventory/auth"
	"inventory/database"
	"inventory/httperr"
	"inventory/mailer"
	"inventory/middleware"
	"inventory/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]*models.User
	products  map[primitive.ObjectID]*models.Product
	resets    map[primitive.ObjectID]*models.ResetToken
	blacklist map[string]time.Time
	contacts  map[primitive.ObjectID]*models.ContactMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[primitive.ObjectID]*models.User{},
		products:  map[primitive.ObjectID]*models.Product{},
		resets:    map[primitive.ObjectID]*models.ResetToken{},
		blacklist: map[string]time.Time{},
		contacts:  map[primitive.ObjectID]*models.ContactMessage{},
	}
}

func (s *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return database.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Photo != nil {
		u.Photo = *upd.Photo
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (s *fakeStore) ReplaceResetToken(_ context.Context, token *models.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.resets {
		if t.UserID == token.UserID {
			delete(s.resets, id)
		}
	}
	token.ID = primitive.NewObjectID()
	cp := *token
	s.resets[token.ID] = &cp
	return nil
}

func (s *fakeStore) FindValidResetToken(_ context.Context, hash string, now time.Time) (*models.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.resets {
		if t.Token == hash && t.ExpiresAt.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) DeleteResetToken(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resets, id)
	return nil
}

func (s *fakeStore) BlacklistToken(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[token] = expiresAt
	return nil
}

func (s *fakeStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[token]
	return ok, nil
}

func (s *fakeStore) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	cp := *product
	s.products[product.ID] = &cp
	return nil
}

func (s *fakeStore) ListProducts(_ context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Product{}
	for _, p := range s.products {
		if p.User == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) FindProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateProduct(_ context.Context, id primitive.ObjectID, upd models.ProductUpdate) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.SKU != nil {
		p.SKU = *upd.SKU
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Image != nil {
		p.Image = upd.Image
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *fakeStore) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *fakeStore) CreateContactMessage(_ context.Context, msg *models.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	cp := *msg
	s.contacts[msg.ID] = &cp
	return nil
}

func (s *fakeStore) MarkContactSent(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.contacts[id]
	if !ok {
		return database.ErrNotFound
	}
	m.Sent = true
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last() (mailer.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

var errMailDown = errors.New("smtp: connection refused")

type testEnv struct {
	store     *fakeStore
	mail      *fakeMailer
	tokens    *auth.Tokens
	users     *UserController
	products  *ProductController
	contact   *ContactController
	router    *gin.Engine
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	env := &testEnv{
		store:     newFakeStore(),
		mail:      &fakeMailer{},
		tokens:    auth.NewTokens("test-secret"),
		uploadDir: t.TempDir(),
	}
	env.users = NewUserController(env.store, env.tokens, env.mail, "https://app.example.com/")
	env.products = NewProductController(env.store, env.uploadDir, "/uploads")
	env.contact = NewContactController(env.store, env.mail, "support@example.com", zap.NewNop())

	r := gin.New()
	r.Use(
		middleware.ErrorHandler(zap.NewNop(), false),
		middleware.JSONBody(middleware.BodyLimit),
		middleware.CookieParser(),
		middleware.URLEncodedBody(middleware.BodyLimit),
	)
	protect := middleware.Protect(env.store, env.tokens)

	u := r.Group("/api/users")
	u.POST("/register", httperr.Handle(env.users.Register))
	u.POST("/login", httperr.Handle(env.users.Login))
	u.GET("/logout", httperr.Handle(env.users.Logout))
	u.GET("/loggedin", httperr.Handle(env.users.LoggedIn))
	u.GET("/getuser", protect, httperr.Handle(env.users.GetUser))
	u.PATCH("/updateuser", protect, httperr.Handle(env.users.UpdateUser))
	u.PATCH("/changepassword", protect, httperr.Handle(env.users.ChangePassword))
	u.POST("/forgotpassword", httperr.Handle(env.users.ForgotPassword))
	u.PUT("/resetpassword/:resetToken", httperr.Handle(env.users.ResetPassword))

	p := r.Group("/api/products", protect)
	p.POST("", httperr.Handle(env.products.CreateProduct))
	p.GET("", httperr.Handle(env.products.GetProducts))
	p.GET("/:id", httperr.Handle(env.products.GetProduct))
	p.PATCH("/:id", httperr.Handle(env.products.UpdateProduct))
	p.DELETE("/:id", httperr.Handle(env.products.DeleteProduct))

	r.POST("/api/contactus", protect, httperr.Handle(env.contact.ContactUs))

	env.router = r
	return env
}

// seedUser stores a user directly and returns it with a session cookie.
func (env *testEnv) seedUser(t *testing.T, name, email, password string) (*models.User, *http.Cookie) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{Name: name, Email: email, Password: string(hash), Photo: models.DefaultPhoto}
	if err := env.store.CreateUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	token, _, err := env.tokens.Issue(user.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	return user, &http.Cookie{Name: auth.CookieName, Value: token}
}

func (env *testEnv) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return env.serve(req)
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not a JSON object: %v (%q)", err, w.Body.String())
	}
	return m
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (%s)", w.Code, want, w.Body.String())
	}
}

func expectMessage(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	expectStatus(t, w, status)
	if got := decode(t, w)["message"]; got != message {
		t.Errorf("message = %v, want %q", got, message)
	}
}
