package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"timetodo_backend/internal/config"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
)

// Open подключает GORM к PostgreSQL и настраивает пул соединений
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if !cfg.IsDevelopment() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return db, nil
}

// Models - все таблицы приложения в порядке зависимостей
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserSubscription{},
		&models.BillingTransaction{},
		&models.AddOnPackage{},
		&models.UserAddOn{},
		&models.UsageTracker{},
		&models.File{},
		&models.Project{},
		&models.Task{},
		&models.Sprint{},
		&models.SprintTask{},
		&models.TimeEntry{},
		&models.AnalyticsEvent{},
		&models.ProjectMetrics{},
		&models.UserMetrics{},
		&models.SprintMetrics{},
	}
}

// AutoMigrate выполняет миграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	// uuid_generate_v4() в дефолтах первичных ключей
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to create uuid-ossp extension: %w", err)
	}

	if err := db.SetupJoinTable(&models.Sprint{}, "Tasks", &models.SprintTask{}); err != nil {
		return fmt.Errorf("failed to set up sprint_tasks join table: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	logger.Info("✅ AutoMigrate успешно завершен.")
	return nil
}
