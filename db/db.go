package db

import (
	"fmt"

	"picshelf/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Instance is the process-wide handle. It is opened once at startup and reused by every request.
var Instance *gorm.DB

// Init opens the configured database and panics if it is unavailable.
func Init(cfg *config.Config) {
	db, err := Open(cfg)
	if err != nil || db == nil {
		panic(fmt.Sprintf("database unavailable: %v", err))
	}
	Instance = db
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DBDriverMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("MYSQL_DSN is not set")
		}
		dialector = mysql.Open(cfg.MySQLDSN)
	case config.DBDriverSQLite:
		dialector = sqlite.Open(cfg.SQLiteFile)
	default:
		return nil, fmt.Errorf("unsupported DB driver %q", cfg.DBDriver)
	}
	gormConfig := &gorm.Config{
		// Every write is a single-document operation, no implicit transactions
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
	if !cfg.DebugMode {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}
	return gorm.Open(dialector, gormConfig)
}
