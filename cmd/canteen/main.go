// Command canteen serves the canteen ordering API.
//
// @title        Canteen API
// @version      1.0
// @description  Menu, checkout, UPI payment confirmation and kitchen administration for a campus canteen.
// @BasePath     /
// @securityDefinitions.apikey  session
// @in                          cookie
// @name                        canteen_session
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	_ "github.com/MikeMC777/canteen/docs"
	"github.com/MikeMC777/canteen/internal/auth"
	"github.com/MikeMC777/canteen/internal/config"
	"github.com/MikeMC777/canteen/internal/database"
	"github.com/MikeMC777/canteen/internal/events"
	"github.com/MikeMC777/canteen/internal/feed"
	"github.com/MikeMC777/canteen/internal/health"
	"github.com/MikeMC777/canteen/internal/menu"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/report"
	"github.com/MikeMC777/canteen/internal/settings"
	"github.com/MikeMC777/canteen/internal/user"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[db] connect: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("[db] migrate: %v", err)
	}

	menuRepo := menu.NewPGRepo(pool)
	orderRepo := order.NewPGRepo(pool, cfg.Location, cfg.InvoicePrefix)
	users := user.NewService(user.NewPGRepo(pool))

	var notify order.Notifier
	if cfg.AMQPURL != "" {
		pub, err := events.Connect(cfg.AMQPURL)
		if err != nil {
			log.Printf("[events] disabled: %v", err)
		} else {
			defer pub.Close()
			notify = pub
		}
	}

	checker := health.NewChecker(pool, 10*time.Second)
	srv := &server{
		orders:   order.NewService(orderRepo, menuRepo, notify, cfg.Location),
		users:    users,
		menu:     menuRepo,
		settings: settings.NewPGRepo(pool),
		sessions: auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		feed:     feed.NewPoller(orderRepo, cfg.FeedInterval, cfg.FeedWindow),
		mailer:   report.NewMailer(),
		ready:    checker.Ready,
		origins:  cfg.CORSOrigins,
	}

	g, gctx := errgroup.WithContext(ctx)

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.router(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with the process so open feed streams close on shutdown
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		log.Printf("[http] listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("[http] shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return checker.Run(gctx) })
	g.Go(func() error { return checker.Serve(gctx, cfg.GRPCHealthAddr) })

	if err := g.Wait(); err != nil {
		log.Printf("[main] exit: %v", err)
		os.Exit(1)
	}
}
