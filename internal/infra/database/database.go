package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tentd/tentd/internal/infra/database/models"
)

func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
}

// Open connects to the configured backend. driver is "postgres" or
// "sqlite"; dsn is the connection string or file path respectively.
func Open(driver, dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(),
	}

	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), config)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), config)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Entity{},
		&models.Profile{},
		&models.Follower{},
		&models.KeyPair{},
		&models.Following{},
		&models.Post{},
		&models.Version{},
		&models.Mention{},
		&models.Group{},
		&models.Notification{},
	)
}
