package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/MikeMC777/canteen/internal/auth"
	"github.com/MikeMC777/canteen/internal/feed"
	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/menu"
	"github.com/MikeMC777/canteen/internal/report"
	"github.com/MikeMC777/canteen/internal/settings"
)

type server struct {
	orders   orderAPI
	users    accountAPI
	menu     menu.Repository
	settings settings.Repository
	sessions *auth.Sessions
	feed     *feed.Poller
	mailer   *report.Mailer
	ready    func() bool
	origins  []string
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())
	if len(s.origins) > 0 {
		r.Use(httpx.CORS(s.origins))
	}
	r.Use(auth.Identify(s.sessions, s.users))

	r.GET("/healthz", func(c *gin.Context) {
		if s.ready != nil && !s.ready() {
			c.String(http.StatusServiceUnavailable, "unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a := r.Group("/auth")
	{
		a.POST("/register", registerHandler(s.users, s.sessions))
		a.POST("/login", loginHandler(s.users, s.sessions))
		a.POST("/logout", logoutHandler(s.sessions))
		a.GET("/me", auth.RequireUser(), meHandler())
	}

	r.GET("/menu", listMenuHandler(s.menu, true))
	r.GET("/menu/:id", getMenuItemHandler(s.menu))

	o := r.Group("/orders", auth.RequireUser())
	{
		o.POST("", createOrderHandler(s.orders, s.settings))
		o.GET("", listMyOrdersHandler(s.orders))
		o.GET("/:id", getOrderHandler(s.orders))
		o.POST("/:id/confirm", confirmPaymentHandler(s.orders))
		o.GET("/:id/qr.png", orderQRHandler(s.orders, s.settings))
	}

	adm := r.Group("/admin", auth.RequireAdmin())
	{
		adm.GET("/menu", listMenuHandler(s.menu, false))
		adm.POST("/menu", createMenuItemHandler(s.menu))
		adm.PATCH("/menu/:id", updateMenuItemHandler(s.menu))
		adm.DELETE("/menu/:id", deleteMenuItemHandler(s.menu))

		adm.GET("/orders", adminListOrdersHandler(s.orders))
		adm.POST("/orders/walk-in", walkInHandler(s.orders, s.settings))
		adm.PUT("/orders/:id/status", updateStatusHandler(s.orders))
		adm.GET("/dashboard", dashboardHandler(s.orders))
		adm.GET("/feed", feedHandler(s.feed))

		adm.GET("/users", listUsersHandler(s.users))
		adm.PATCH("/users/:id", updateUserFlagsHandler(s.users))

		adm.GET("/settings", getSettingsHandler(s.settings))
		adm.PUT("/settings", putSettingsHandler(s.settings))

		adm.GET("/reports/daily.xlsx", dailyReportHandler(s.orders))
		adm.POST("/reports/daily/email", emailReportHandler(s.orders, s.settings, s.mailer))
	}
	return r
}
