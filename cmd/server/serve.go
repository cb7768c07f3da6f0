package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/router"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the hold expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), loadConfig())
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	pub, closePub := publisherFor(cfg)
	defer closePub()

	opts := serviceOptions(cfg, pub)
	events := service.NewEventService(be.store, opts...)
	holds := service.NewHoldService(be.store, opts...)
	bookings := service.NewBookingService(be.store, opts...)
	availability := service.NewAvailabilityService(be.store, opts...)
	sweeper := service.NewSweeper(be.store, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	rl := config.LoadRateLimitConfig()
	ropts := router.Options{JWTSecret: cfg.JWTSecret, RateLimit: rl}
	if rl.Enabled {
		ropts.Redis = config.NewRedisClient(ctx, config.LoadRedisConfig())
		if ropts.Redis != nil {
			defer ropts.Redis.Close()
		}
	}
	h := router.Handlers{
		Events:       handler.NewEventHandler(events),
		Holds:        handler.NewHoldHandler(holds),
		Bookings:     handler.NewBookingHandler(bookings),
		Availability: handler.NewAvailabilityHandler(availability),
	}
	if be.db != nil {
		h.Ready = be.db
	}
	router.Register(e, h, ropts)

	if !cfg.AuthEnabled() {
		logrus.Warn("JWT_SECRET not set; API runs without authentication")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(ctx) })
	if cfg.ConsumerEnabled && cfg.AMQPURL != "" {
		g.Go(func() error { return queue.StartBookingConsumer(ctx, cfg.AMQPURL, cfg.BookingLogPath) })
	}
	g.Go(func() error {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.Store}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logrus.Info("shutting down")
		return e.Shutdown(sctx)
	})
	return g.Wait()
}
