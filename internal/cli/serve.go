package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/database"
	"github.com/iliyamo/hall-reservation/internal/handler"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/obs"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/router"
	"github.com/iliyamo/hall-reservation/internal/service"
	"github.com/iliyamo/hall-reservation/internal/slipstore"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logrus.StandardLogger()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrateUp {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
			}

			tracingCfg, err := config.LoadTracingConfig()
			if err != nil {
				return err
			}
			stopTracer, err := obs.InitTracer(tracingCfg, cfg.Env, Version)
			if err != nil {
				return err
			}
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer scancel()
				if err := stopTracer(sctx); err != nil {
					log.WithError(err).Warn("tracer shutdown")
				}
			}()

			slipCfg, err := config.LoadSlipConfig()
			if err != nil {
				return err
			}
			events, closeEvents, err := startEvents(ctx, log)
			if err != nil {
				return err
			}
			defer closeEvents()

			svc := service.New(repository.NewStore(db),
				service.WithSlipStore(slipstore.NewDisk(slipCfg.Dir, slipCfg.MaxBytes)),
				service.WithEvents(events),
				service.WithLogger(log),
			)

			rdb, err := redisClient(log)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}
			cacheMW, limitMW, err := redisMiddleware(rdb)
			if err != nil {
				return err
			}

			e := echo.New()
			e.HideBanner = true
			e.Use(echomw.Recover())
			e.Use(requestLogger(log))
			router.Register(e, router.Deps{
				Auth:      handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)),
				Halls:     handler.NewHallHandler(svc, cfg.PublicHorizonDays),
				Bookings:  handler.NewBookingHandler(svc, slipCfg.MaxBytes),
				Admin:     handler.NewAdminHandler(svc, cfg.AdminHorizonDays),
				DB:        db,
				JWTSecret: cfg.JWTSecret,
				Cache:     cacheMW,
				RateLimit: limitMW,
			})

			addr := ":" + cfg.Port
			errCh := make(chan error, 1)
			go func() {
				log.Infof("listening on %s (env=%s)", addr, cfg.Env)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info("shutting down")
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return e.Shutdown(sctx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply the schema before serving")
	return cmd
}

// startEvents returns the lifecycle event sink.  With the queue enabled
// it also runs the audit consumer until ctx ends.  An unreachable broker
// is logged and the server runs without events.
func startEvents(ctx context.Context, log logrus.FieldLogger) (service.EventPublisher, func(), error) {
	qcfg, err := config.LoadQueueConfig()
	if err != nil {
		return nil, nil, err
	}
	if !qcfg.Enabled {
		return queue.Discard{}, func() {}, nil
	}
	pub, err := queue.NewPublisher(qcfg.URL, qcfg.Exchange, log)
	if err != nil {
		log.WithError(err).Warn("rabbitmq unavailable, booking events disabled")
		return queue.Discard{}, func() {}, nil
	}
	go func() {
		if err := queue.NewAuditConsumer(qcfg, log).Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("booking-consumer stopped")
		}
	}()
	return pub, func() { _ = pub.Close() }, nil
}

// redisClient returns nil when Redis is not reachable.
func redisClient(log logrus.FieldLogger) (*redis.Client, error) {
	rcfg, err := config.LoadRedisConfig()
	if err != nil {
		return nil, err
	}
	rdb := config.NewRedisClient(rcfg)
	if rdb == nil {
		log.WithField("addr", rcfg.Address()).Warn("redis unavailable, cache and rate limiting disabled")
	}
	return rdb, nil
}

func redisMiddleware(rdb *redis.Client) (cache, limit echo.MiddlewareFunc, err error) {
	if rdb == nil {
		return nil, nil, nil
	}
	ccfg, err := config.LoadCacheConfig()
	if err != nil {
		return nil, nil, err
	}
	rcfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return nil, nil, err
	}
	if ccfg.Enabled {
		cache = middleware.NewRedisCache(ccfg, rdb)
	}
	if rcfg.Enabled {
		limit = middleware.NewTokenBucket(rcfg, rdb)
	}
	return cache, limit, nil
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Info("request")
			return nil
		},
	})
}
