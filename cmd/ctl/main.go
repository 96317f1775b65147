package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"timetodo_backend/database"
	"timetodo_backend/internal/app"
	"timetodo_backend/internal/cache"
	"timetodo_backend/internal/config"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "timetodo-ctl",
	Short: "Time to DO backend administration",
	Long: `timetodo-ctl runs the API server and the maintenance tasks around it:
migrations, add-on catalog seeding, metric snapshots and usage reports.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		return database.AutoMigrate(db)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(limitsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	app.InitLogger(cfg)
	return cfg, nil
}

// openServices - база и сервисы без HTTP. Кэш не нужен: CLI всегда читает свежие данные.
func openServices(ctx context.Context) (*gorm.DB, *services.ServiceContainer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewStorage(ctx, app.StorageConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	container := services.NewServiceContainer(services.Dependencies{
		Storage:     store,
		LimitsCache: cache.NewNoopCache(),
		LimitsTTL:   cfg.LimitsCacheTTL(),
	})
	return db.WithContext(ctx), container, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
