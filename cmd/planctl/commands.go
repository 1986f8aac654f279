package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"petro-planning/internal/routes"
	"petro-planning/pkg/config"
	"petro-planning/pkg/customvalidator"
	"petro-planning/pkg/database/postgresql"
	"petro-planning/pkg/eventbus"
	applogger "petro-planning/pkg/logger"
	"petro-planning/pkg/utils"
	"petro-planning/seeders"
)

var actorFlag string

// migrateCmd runs goose migrations embedded in the binary
var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Run schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New()
		logger := applogger.NewLogger(cfg.Logger)
		defer logger.Sync()
		return postgresql.Migrate(cfg.Postgres.DSN, postgresql.MigrateCommand(args[0]), logger)
	},
}

// seedCmd loads demo projects and equipment
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo projects and equipment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc *routes.Services, logger *zap.Logger) error {
			if err := seeders.SeedProjects(ctx, svc.Projects, logger); err != nil {
				return fmt.Errorf("seed projects: %w", err)
			}
			if err := seeders.SeedEquipment(ctx, svc.Equipment, logger); err != nil {
				return fmt.Errorf("seed equipment: %w", err)
			}
			return nil
		})
	},
}

// importCmd loads equipment rows from an Excel workbook
var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import equipment from an .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc *routes.Services, logger *zap.Logger) error {
			res, err := svc.Import.ImportFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created: %d, skipped: %d, errors: %d\n",
				res.Created, res.Skipped, len(res.Errors))
			for _, e := range res.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+e)
			}
			return nil
		})
	},
}

var summaryDays int

// summaryCmd prints fleet counters and upcoming plans
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print fleet status and upcoming plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc *routes.Services, logger *zap.Logger) error {
			stats, err := svc.Dashboard.GetDashboardStats(ctx, summaryDays)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "equipment: %d, utilization: %.1f%%\n", stats.TotalEquipment, stats.UtilizationPct)
			for _, group := range stats.EquipmentByStatus {
				fmt.Fprintf(out, "  %-15s %d\n", group.GroupName, group.Count)
			}
			fmt.Fprintf(out, "overdue activities: %d, out of service: %d\n",
				stats.Alerts.OverdueActivities, stats.Alerts.OutOfService)
			for _, plan := range stats.UpcomingPlans {
				fmt.Fprintf(out, "  %s  %-12s %s\n", plan.StartDate.Format("2006-01-02"), plan.Type, plan.Title)
			}
			return nil
		})
	},
}

// withServices собирает сервисы без HTTP. Redis подключается, если доступен,
// чтобы импорт сбрасывал кэш работающего сервера.
func withServices(parent context.Context, fn func(ctx context.Context, svc *routes.Services, logger *zap.Logger) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 10*time.Minute)
	defer cancel()

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Logger)
	defer logger.Sync()

	pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus := eventbus.New(logger)
	defer bus.Wait()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis недоступен, кэш не сбрасывается", zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	svc := routes.NewServices(pool, redisClient, bus, customvalidator.New(), cfg, logger)
	return fn(utils.WithUserID(ctx, actorFlag), svc, logger)
}
