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

	"github.com/iliyamo/product-api/internal/auth"
	"github.com/iliyamo/product-api/internal/config"
	"github.com/iliyamo/product-api/internal/database"
	"github.com/iliyamo/product-api/internal/handler"
	"github.com/iliyamo/product-api/internal/logging"
	"github.com/iliyamo/product-api/internal/queue"
	"github.com/iliyamo/product-api/internal/repository"
	"github.com/iliyamo/product-api/internal/router"
	"github.com/iliyamo/product-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		fatal(logging.New(os.Stderr, "text", "error"), "invalid configuration", err)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		fatal(logger, "database driver", err)
	}
	db, err := database.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "database connect", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			fatal(logger, "database migrate", err)
		}
	}

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		fatal(logger, "password hasher", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(cfg.JWTExpireMinutes)*time.Minute)
	if err != nil {
		fatal(logger, "token issuer", err)
	}

	var events queue.Publisher = queue.Noop{}
	if cfg.Events.Enabled {
		p, err := queue.NewAMQPPublisher(cfg.Events.URL)
		if err != nil {
			logger.Warn(ctx, "event publishing disabled: broker unreachable", "err", err)
		} else {
			events = p
		}
	}
	defer events.Close()
	if cfg.Events.AuditConsumer {
		consumer := &queue.AuditConsumer{URL: cfg.Events.URL, Dir: cfg.Events.AuditLogDir, Logger: logger.With("component", "audit")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "audit consumer stopped", "err", err)
			}
		}()
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		if rdb = config.NewRedisClient(ctx, cfg.Redis); rdb == nil {
			logger.Warn(ctx, "response cache disabled: redis unreachable", "addr", cfg.Redis.Addr)
		} else {
			defer rdb.Close()
		}
	}

	users := service.NewUserService(repository.NewUserRepo(db, dialect), hasher, tokens, events, logger)
	authHandler := handler.NewAuthHandler(users, logger)
	productHandler := handler.NewProductHandler(repository.NewProductRepo(db, dialect), events, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String()}
			if v.Error != nil {
				logger.Warn(c.Request().Context(), "request", append(args, "err", v.Error)...)
				return nil
			}
			logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, tokens)
	router.RegisterProducts(e, productHandler, tokens, cfg.Cache, rdb, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info(ctx, "listening", "addr", addr, "driver", string(dialect))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "http server", err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown", "err", err)
	}
}

func fatal(logger logging.Logger, msg string, err error) {
	logger.Error(context.Background(), msg, "err", err)
	os.Exit(1)
}
