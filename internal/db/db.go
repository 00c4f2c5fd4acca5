// Package db opens the SQLite database behind the sqlite corpus backend.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultBusyTimeout = 5 * time.Second

// Options controls how the SQLite connection is initialised.
type Options struct {
	Path         string
	Logger       logger.Interface
	BusyTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

// Open creates the parent directory of opts.Path when needed and connects through Gorm with
// WAL journaling and a busy timeout.
func Open(opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		return nil, eris.New("database path is required")
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "creating database directory %s", dir)
		}
	}

	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", opts.Path, busyTimeout.Milliseconds())

	gormLogger := opts.Logger
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, eris.Wrap(err, "opening sqlite database")
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB from gorm")
	}
	tunePool(sqlDB, opts)

	if err := database.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeout.Milliseconds())).Error; err != nil {
		_ = sqlDB.Close()
		return nil, eris.Wrap(err, "configuring busy timeout pragma")
	}
	if err := database.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
		_ = sqlDB.Close()
		return nil, eris.Wrap(err, "setting journal mode to WAL")
	}

	return database, nil
}

func tunePool(sqlDB *sql.DB, opts Options) {
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdle)
	}
	if opts.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLife)
	}
}

// Close releases the underlying connection pool. A nil database is a no-op.
func Close(database *gorm.DB) error {
	if database == nil {
		return nil
	}

	sqlDB, err := SQLDB(database)
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return eris.Wrap(err, "closing database connection")
	}
	return nil
}

// SQLDB exposes the underlying *sql.DB.
func SQLDB(database *gorm.DB) (*sql.DB, error) {
	if database == nil {
		return nil, eris.New("gorm.DB is nil")
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB")
	}
	return sqlDB, nil
}
