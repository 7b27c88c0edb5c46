package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/config"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	console "github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

var DB *gorm.DB
var log = console.New("DB")

const (
	maxRetries = 5
	retryDelay = 5 * time.Second
)

// Connect opens the postgres pool, retrying while the server comes up, and
// runs migrations.
func Connect(cfg *config.Config) error {
	logLevel := logger.Warn
	if cfg.Database.LogSQL {
		logLevel = logger.Info
	}

	log.Info("Connecting to database %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
			Logger:                                   logger.Default.LogMode(logLevel),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			AllowGlobalUpdate:                        false,
			TranslateError:                           true,
		})
		if err == nil {
			log.Success("Connected to database")

			sqlDB, err := DB.DB()
			if err != nil {
				return log.Error("Failed to get underlying *sql.DB instance", err)
			}
			sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(30 * time.Minute)

			if err := Migrate(DB); err != nil {
				return log.Error("Failed to run migrations", err)
			}
			log.Success("Migrations completed")
			return nil
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(retryDelay)
	}
	return log.Error("Failed to connect to database", fmt.Errorf("gave up after %d attempts: %w", maxRetries, err))
}

// Migrate registers the link tables and migrates every model in one
// transaction.
func Migrate(db *gorm.DB) error {
	if err := models.JoinTables(db); err != nil {
		return fmt.Errorf("setup join tables: %w", err)
	}

	log.Info("Running migrations...")
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&models.User{},
			&models.Role{},
			&models.Permission{},

			&models.UserRole{},
			&models.UserPermission{},
			&models.RolePermission{},
			&models.Session{},
		)
	})
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}
