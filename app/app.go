// Package app wires configuration, logging, storage and HTTP into one value
// owned by main.
package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"inventory/auth"
	"inventory/config"
	"inventory/controllers"
	"inventory/database"
	"inventory/mailer"
	"inventory/middleware"
	"inventory/routes"
	"inventory/server"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Store interface {
	controllers.UserStore
	controllers.ProductStore
	controllers.ContactStore
}

type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *database.Store
	Engine *gin.Engine

	connect func(ctx context.Context, uri, dbName string) (*database.Store, error)
	listen  func(network, addr string) (net.Listener, error)
}

func New(cfg *config.Config, log *zap.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  log,
		connect: database.Connect,
		listen:  net.Listen,
	}
}

func (a *App) Mounts(store Store) []routes.Mount {
	tokens := auth.NewTokens(a.Config.JWTSecret)
	mail := mailer.New(mailer.SMTPConfig{
		Host:     a.Config.Email.Host,
		Port:     a.Config.Email.Port,
		User:     a.Config.Email.User,
		Password: a.Config.Email.Password,
	}, a.Logger)
	protect := middleware.Protect(store, tokens)

	return []routes.Mount{
		routes.Users(controllers.NewUserController(store, tokens, mail, a.Config.FrontendURL), protect),
		routes.Products(controllers.NewProductController(store, a.Config.UploadDir, a.Config.UploadPrefix), protect),
		routes.Contact(controllers.NewContactController(store, mail, a.Config.Email.User, a.Logger), protect),
	}
}

// Run connects to MongoDB and only then starts listening. It blocks until ctx
// is cancelled or the server fails, and shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	for _, w := range a.Config.Warnings() {
		a.Logger.Warn(w)
	}

	store, err := a.connect(ctx, a.Config.MongoURI, a.Config.DBName)
	if err != nil {
		return errors.Wrap(err, "connect to MongoDB")
	}
	a.Store = store
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Disconnect(dctx); err != nil {
			a.Logger.Warn("disconnect MongoDB", zap.Error(err))
		}
	}()
	a.Logger.Info("connected to MongoDB", zap.String("db", a.Config.DBName))

	if err := store.EnsureIndexes(ctx); err != nil {
		a.Logger.Warn("ensure indexes", zap.Error(err))
	}
	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return errors.Wrap(err, "create upload directory")
	}

	a.Engine = server.New(a.Config, a.Logger, a.Mounts(store)...)
	return a.serve(ctx, a.Engine)
}

func (a *App) serve(ctx context.Context, h http.Handler) error {
	ln, err := a.listen("tcp", ":"+a.Config.Port)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.Logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
