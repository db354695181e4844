// Package server assembles the gin engine: the fixed request pipeline, the
// routers, and the terminal error handler.
package server

import (
	"inventory/config"
	"inventory/controllers"
	"inventory/middleware"
	"inventory/routes"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Stage struct {
	Name    string
	Handler gin.HandlerFunc
}

// Pipeline returns the stages every request passes through before route
// dispatch, in order. The error handler comes first because it inspects the
// errors left by everything after it once c.Next returns.
func Pipeline(cfg *config.Config, log *zap.Logger) []Stage {
	return []Stage{
		{Name: "errors", Handler: middleware.ErrorHandler(log, cfg.IsDevelopment())},
		{Name: "json", Handler: middleware.JSONBody(middleware.BodyLimit)},
		{Name: "cookies", Handler: middleware.CookieParser()},
		{Name: "urlencoded", Handler: middleware.URLEncodedBody(middleware.BodyLimit)},
		// Same parser again; it finds the body already cached and passes through.
		{Name: "json2", Handler: middleware.JSONBody(middleware.BodyLimit)},
		{Name: "cors", Handler: middleware.CORS(cfg.AllowedOrigin)},
		{Name: "static", Handler: middleware.Static(cfg.UploadPrefix, cfg.UploadDir)},
	}
}

func New(cfg *config.Config, log *zap.Logger, mounts ...routes.Mount) *gin.Engine {
	controllers.RegisterValidators()

	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.MaxMultipartMemory = controllers.MaxImageBytes

	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	for _, s := range Pipeline(cfg, log) {
		r.Use(s.Handler)
	}

	routes.RegisterRoutes(r, mounts...)
	return r
}
