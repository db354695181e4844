package routes

import (
	"net/http"

	"inventory/controllers"
	"inventory/httperr"

	"github.com/gin-gonic/gin"
)

type Mount struct {
	Prefix   string
	Register func(rg *gin.RouterGroup)
}

func Users(uc *controllers.UserController, protect gin.HandlerFunc) Mount {
	return Mount{
		Prefix: "/api/users",
		Register: func(rg *gin.RouterGroup) {
			rg.POST("/register", httperr.Handle(uc.Register))
			rg.POST("/login", httperr.Handle(uc.Login))
			rg.GET("/logout", httperr.Handle(uc.Logout))
			rg.GET("/loggedin", httperr.Handle(uc.LoggedIn))
			rg.POST("/forgotpassword", httperr.Handle(uc.ForgotPassword))
			rg.PUT("/resetpassword/:resetToken", httperr.Handle(uc.ResetPassword))

			protected := rg.Group("/")
			protected.Use(protect)
			{
				protected.GET("/getuser", httperr.Handle(uc.GetUser))
				protected.PATCH("/updateuser", httperr.Handle(uc.UpdateUser))
				protected.PATCH("/changepassword", httperr.Handle(uc.ChangePassword))
			}
		},
	}
}

func Products(pc *controllers.ProductController, protect gin.HandlerFunc) Mount {
	return Mount{
		Prefix: "/api/products",
		Register: func(rg *gin.RouterGroup) {
			rg.Use(protect)
			rg.POST("", httperr.Handle(pc.CreateProduct))
			rg.GET("", httperr.Handle(pc.GetProducts))
			rg.GET("/:id", httperr.Handle(pc.GetProduct))
			rg.PATCH("/:id", httperr.Handle(pc.UpdateProduct))
			rg.DELETE("/:id", httperr.Handle(pc.DeleteProduct))
		},
	}
}

func Contact(cc *controllers.ContactController, protect gin.HandlerFunc) Mount {
	return Mount{
		Prefix: "/api/contactus",
		Register: func(rg *gin.RouterGroup) {
			rg.Use(protect)
			rg.POST("", httperr.Handle(cc.ContactUs))
		},
	}
}

// RegisterRoutes mounts every router on r together with the landing route and
// the 404 fallback. Mounts never share a prefix, so their order does not matter.
func RegisterRoutes(r *gin.Engine, mounts ...Mount) {
	for _, m := range mounts {
		m.Register(r.Group(m.Prefix))
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Home Page")
	})

	r.NoRoute(func(c *gin.Context) {
		httperr.Fail(c, httperr.NotFound("Not Found - "+c.Request.URL.Path))
	})
}
