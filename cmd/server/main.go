package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/calendar-booking/internal/booking"
	"github.com/iliyamo/calendar-booking/internal/config"
	"github.com/iliyamo/calendar-booking/internal/database"
	"github.com/iliyamo/calendar-booking/internal/handler"
	"github.com/iliyamo/calendar-booking/internal/lock"
	"github.com/iliyamo/calendar-booking/internal/logging"
	"github.com/iliyamo/calendar-booking/internal/metrics"
	"github.com/iliyamo/calendar-booking/internal/middleware"
	"github.com/iliyamo/calendar-booking/internal/queue"
	"github.com/iliyamo/calendar-booking/internal/repository"
	"github.com/iliyamo/calendar-booking/internal/router"
	"github.com/iliyamo/calendar-booking/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("dev", "info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn().Msg("redis unavailable; cache disabled, in-process rate limiting")
	} else {
		defer rdb.Close()
	}

	locker, err := newLocker(config.LoadLockConfig(), rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("booking lock")
	}

	var events booking.Publisher
	if p := service.NewQueuePublisher(cfg.AMQPURL); p != nil {
		events = p
	}

	svc := booking.NewService(repository.NewBookingRepo(db), locker, events, log)
	cacheCfg := config.LoadCacheConfig()
	bh := handler.NewBookingHandler(svc, middleware.NewCachePurger(cacheCfg, rdb), log)
	ah := handler.NewAuthHandler(cfg, repository.NewTokenRepo(db), log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	if cfg.MetricsEnabled {
		metrics.Register()
		e.Use(metrics.Middleware())
	}

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(cacheCfg, rdb, log)
	router.RegisterRoutes(e, db, rdb, cfg.MetricsEnabled)
	router.RegisterAuth(e, ah, cfg.JWTSecret, limit)
	router.RegisterPublic(e, bh, cache, limit)
	router.RegisterAdmin(e, bh, cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ConsumerEnabled && cfg.AMQPURL != "" {
		consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, LogPath: cfg.AuditLogPath, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("driver", cfg.DBDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func newLocker(cfg config.LockConfig, rdb *redis.Client, log zerolog.Logger) (booking.Locker, error) {
	switch cfg.Backend {
	case config.LockLocal:
		return lock.NewLocal(), nil
	case config.LockRedis:
		if rdb == nil {
			return nil, errors.New("LOCK_BACKEND=redis but redis is unavailable")
		}
		return lock.NewRedis(rdb, lock.RedisConfig{Prefix: cfg.Prefix, TTL: cfg.TTL, Wait: cfg.Wait}, log), nil
	default:
		return nil, errors.New("unknown LOCK_BACKEND " + cfg.Backend)
	}
}
