package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"petro-planning/internal/listeners"
	"petro-planning/internal/routes"
	"petro-planning/internal/services"
	"petro-planning/pkg/api"
	"petro-planning/pkg/config"
	"petro-planning/pkg/customvalidator"
	"petro-planning/pkg/database/postgresql"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/eventbus"
	applogger "petro-planning/pkg/logger"
	appmiddleware "petro-planning/pkg/middleware"
	"petro-planning/pkg/utils"
	"petro-planning/pkg/websocket"
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. База данных и миграции
	if cfg.Server.AutoMigrate {
		if err := postgresql.Migrate(cfg.Postgres.DSN, postgresql.MigrateUp, logger); err != nil {
			logger.Fatal("Ошибка применения миграций", zap.Error(err))
		}
	}
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("Не удалось подключиться к PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	// 3. Redis: без него сервис работает, но без кэша
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Warn("Redis недоступен, кэш отключён", zap.Error(err), zap.String("address", cfg.Redis.Address))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 4. Шина событий и WebSocket
	bus := eventbus.New(logger)
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	listeners.NewNotificationListener(services.NewWebSocketNotificationService(hub, logger), logger).Register(bus)

	// 5. Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = api.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, appmiddleware.ActorHeader},
		AllowCredentials: true,
	}))
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(appmiddleware.NewActorMiddleware(logger).Actor)

	v := customvalidator.New()
	e.Validator = utils.NewValidator(v)

	svc := routes.NewServices(dbConn, redisClient, bus, v, cfg, logger)
	routes.InitRouter(e, svc, hub, cfg, logger)

	// 6. Запуск и корректная остановка
	go func() {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал остановки")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP-сервера", zap.Error(err))
	}
	bus.Wait()
	logger.Info("Сервер остановлен")
}
