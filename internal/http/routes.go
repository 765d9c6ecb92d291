package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/tazhibayda/dailyjobs/internal/metrics"
	"github.com/tazhibayda/dailyjobs/internal/page"
)

func NewRouter(h *Handler) *gin.Engine {
	metrics.MustRegister()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(gintrace.Middleware("dailyjobs"))
	r.Use(Metrics())

	rl := NewRateLimiter(20, time.Minute)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/.well-known/jwks.json", h.JWKS)

	auth := r.Group("/api/auth")
	{
		auth.GET("/verify", h.Verify)
		auth.POST("/reset", RateLimit(rl), h.ConfirmReset)
		auth.GET("/google/callback", h.GoogleCallback)
	}

	r.POST("/api/pages", h.CreatePage)
	p := r.Group("/api/pages/:id")
	{
		p.GET("", h.GetPage)

		p.POST("/signup", RateLimit(rl), h.SignUp)
		p.POST("/signin", RateLimit(rl), h.SignIn)
		p.POST("/signout", h.SignOut)
		p.POST("/resend-verification", h.ResendVerification)
		p.POST("/check-verified", h.CheckVerified)
		p.POST("/reset-password", RateLimit(rl), h.ResetPassword)
		p.GET("/google", h.GoogleStart)
		p.DELETE("/account", RateLimit(rl), h.DeleteAccount)

		p.POST("/companies/select-all", h.SelectAll)
		p.POST("/companies/clear-all", h.ClearAll)
		p.POST("/companies/:company/toggle", h.ToggleCompany)
		p.POST("/filter", h.Filter)
		p.POST("/job-types/:tag", h.check((*page.Controller).CheckJobType, "tag"))
		p.POST("/experience/:tag", h.check((*page.Controller).CheckExperience, "tag"))
		p.POST("/locations/:loc", h.check((*page.Controller).CheckLocation, "loc"))
		p.POST("/save", h.Save)
	}
	return r
}
