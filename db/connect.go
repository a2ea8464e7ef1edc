package db

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tune the connection opened by Connect.
type Options struct {
	// Debug logs every SQL statement.
	Debug bool
	// Migrate runs AutoMigrate once connected.
	Migrate bool
}

// Connect opens the database behind dsn. postgres:// URLs and key=value DSNs
// use the postgres driver; sqlite:// and file: DSNs use sqlite.
func Connect(dsn string, opts Options) (Database, error) {
	dialector, driver, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if opts.Debug {
		logLevel = logger.Info
	}
	gormLogger := logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	logrus.WithField("driver", driver).Info("connecting to database")
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    driver == "postgres",
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := sqlHandle(db)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// a single connection keeps in-memory databases alive and avoids lock errors
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logrus.Info("database connection established")

	database := &GormDatabase{DB: db}
	if opts.Migrate {
		if err := database.Migrate(); err != nil {
			_ = database.Close()
			return nil, err
		}
	}
	return database, nil
}

// sqlHandle returns the *sql.DB behind gdb. On failure the connection pool is
// closed, if it can be.
func sqlHandle(gdb *gorm.DB) (*sql.DB, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		if closer, ok := gdb.ConnPool.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB, nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, "", fmt.Errorf("missing database connection string")
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), "sqlite", nil
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn), "sqlite", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return postgres.Open(dsn), "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database connection string")
	}
}
