package helpers

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"timetodo_backend/database"
	"timetodo_backend/internal/models"
)

var (
	dbOnce    sync.Once
	sharedDB  *gorm.DB
	dbInitErr error
	container *postgres.PostgresContainer
)

// GetTestDB возвращает общую мигрированную БД.
// TEST_DATABASE_URL имеет приоритет, иначе поднимается контейнер postgres:15-alpine.
// Без docker и без TEST_DATABASE_URL тест пропускается.
func GetTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	dbOnce.Do(func() {
		if dsn == "" {
			dsn, dbInitErr = startContainer()
			if dbInitErr != nil {
				return
			}
		}

		sharedDB, dbInitErr = gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if dbInitErr != nil {
			return
		}
		dbInitErr = database.AutoMigrate(sharedDB)
	})

	if dbInitErr != nil {
		t.Skipf("test database unavailable: %v", dbInitErr)
	}
	return sharedDB
}

func startContainer() (string, error) {
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("timetodo_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	container = pg

	return pg.ConnectionString(ctx, "sslmode=disable")
}

// Shutdown закрывает общее соединение и гасит контейнер. Вызывается из TestMain.
func Shutdown() {
	if sharedDB != nil {
		if sqlDB, err := sharedDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}

// BeginTransaction открывает транзакцию, которая откатывается в конце теста
func BeginTransaction(t *testing.T, db *gorm.DB) *gorm.DB {
	t.Helper()
	tx := db.Begin()
	require.NoError(t, tx.Error, "не удалось начать транзакцию")
	t.Cleanup(func() { RollbackTransaction(t, tx) })
	return tx
}

func RollbackTransaction(t *testing.T, tx *gorm.DB) {
	if err := tx.Rollback().Error; err != nil && err != gorm.ErrInvalidTransaction {
		t.Logf("rollback: %v", err)
	}
}

// CreateUser создает пользователя с уникальными email и username
func CreateUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Email:    fmt.Sprintf("user_%s@test.local", suffix),
		Username: "user_" + suffix,
		FullName: "Test User " + suffix,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error, "не удалось создать пользователя")
	return user
}

// DeleteUserData удаляет все строки пользователя. Нужна тестам,
// которые работают вне транзакции (параллельные резервирования).
func DeleteUserData(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	for _, table := range []string{"files", "usage_tracker", "user_addons", "billing_transactions", "user_subscriptions", "analytics_events", "user_metrics"} {
		column := "user_id"
		if table == "files" {
			column = "uploader_id"
		}
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column), userID).Error; err != nil {
			t.Logf("cleanup %s: %v", table, err)
		}
	}
	if err := db.Exec("DELETE FROM users WHERE id = ?", userID).Error; err != nil {
		t.Logf("cleanup users: %v", err)
	}
}
