package data

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/docentkit/docentkit-backend/internal/platform/envutil"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
)

// Open connects per DATABASE_DRIVER: "postgres" uses DATABASE_URL, anything
// else falls back to a local sqlite file (DATABASE_PATH, ":memory:" works
// for tests).
func Open(log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	driver := strings.ToLower(envutil.String("DATABASE_DRIVER", "sqlite"))
	switch driver {
	case "postgres":
		dsn := envutil.String("DATABASE_URL", "")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL required for postgres driver")
		}
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("database connected", "driver", "postgres")
		return db, nil
	default:
		path := envutil.String("DATABASE_PATH", "docentkit.db")
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info("database connected", "driver", "sqlite", "path", path)
		return db, nil
	}
}
