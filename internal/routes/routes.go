package routes

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"petro-planning/internal/controllers"
	"petro-planning/internal/repositories"
	"petro-planning/internal/services"
	"petro-planning/pkg/config"
	"petro-planning/pkg/eventbus"
	"petro-planning/pkg/filestorage"
	"petro-planning/pkg/websocket"
)

// Services - собранный слой сервисов. Используется HTTP-сервером и planctl.
type Services struct {
	Equipment    services.EquipmentServiceInterface
	Activity     services.ActivityServiceInterface
	Import       services.EquipmentImportServiceInterface
	Plan         services.PlanServiceInterface
	Availability services.AvailabilityServiceInterface
	Dashboard    services.DashboardServiceInterface
	Projects     repositories.ProjectRepositoryInterface
	Files        filestorage.FileStorageInterface
}

// NewServices: redisClient может быть nil - тогда чтение идёт мимо кэша.
func NewServices(
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	bus *eventbus.Bus,
	validate *validator.Validate,
	cfg *config.Config,
	logger *zap.Logger,
) *Services {
	var cache repositories.CacheRepositoryInterface
	if redisClient != nil {
		cache = repositories.NewRedisCacheRepository(redisClient)
	}

	// --- 1. РЕПОЗИТОРИИ ---
	txManager := repositories.NewTxManager(dbConn, cfg.Postgres.LockTimeout)
	equipmentRepo := repositories.NewEquipmentRepository(dbConn, logger)
	activityRepo := repositories.NewActivityRepository(logger)
	historyRepo := repositories.NewEquipmentHistoryRepository(dbConn)
	planRepo := repositories.NewPlanRepository(dbConn, logger)
	projectRepo := repositories.NewProjectRepository(dbConn)

	// --- 2. СЕРВИСЫ ---
	base := services.NewBaseService(cache, cfg.Cache.TTL, logger)
	notifier := services.NewNotificationService(bus, logger)
	historyService := services.NewEquipmentHistoryService(historyRepo, logger)
	ledger := services.NewActivityLedger(activityRepo, logger)

	equipmentService := services.NewEquipmentService(base, txManager, equipmentRepo, planRepo, historyService, notifier, validate, logger)

	var files filestorage.FileStorageInterface
	if storage, err := filestorage.NewLocalFileStorage(cfg.Upload.Dir); err != nil {
		logger.Warn("Хранилище файлов импорта недоступно", zap.String("dir", cfg.Upload.Dir), zap.Error(err))
	} else {
		files = storage
	}

	return &Services{
		Equipment:    equipmentService,
		Activity:     services.NewActivityService(base, txManager, equipmentRepo, planRepo, ledger, historyService, notifier, validate, logger),
		Import:       services.NewEquipmentImportService(equipmentService, notifier, logger),
		Plan:         services.NewPlanService(base, txManager, planRepo, equipmentRepo, projectRepo, ledger, historyService, notifier, validate, logger),
		Availability: services.NewAvailabilityService(equipmentRepo, planRepo, logger),
		Dashboard:    services.NewDashboardService(repositories.NewDashboardRepository(dbConn, logger), logger),
		Projects:     projectRepo,
		Files:        files,
	}
}

func InitRouter(e *echo.Echo, svc *Services, hub *websocket.Hub, cfg *config.Config, logger *zap.Logger) {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")

	equipmentController := controllers.NewEquipmentController(svc.Equipment, svc.Activity, svc.Import, svc.Files, cfg.Upload.MaxSizeMB, logger)
	planController := controllers.NewPlanController(svc.Plan, svc.Availability, logger)
	dashboardController := controllers.NewDashboardController(svc.Dashboard, logger)
	wsController := controllers.NewWebSocketController(hub, cfg.Server.AllowedOrigins, logger)

	runEquipmentRouter(api, equipmentController)
	runPlanRouter(api, planController)
	runDashboardRouter(api, dashboardController)
	runWebSocketRouter(e, wsController)

	logger.Info("INIT_ROUTER: Создание маршрутов завершено")
}
