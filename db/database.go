package db

import (
	"context"
	"fmt"

	"users-service/entities"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// models lists every table owned by the service, in creation order.
var models = []interface{}{&entities.User{}}

type Database interface {
	GetDB() *gorm.DB
	// Migrate creates missing tables and columns.
	Migrate() error
	// Recreate drops every table and creates them again.
	Recreate() error
	Ping(ctx context.Context) error
	Close() error
}

type GormDatabase struct {
	DB *gorm.DB
}

func (g *GormDatabase) GetDB() *gorm.DB { return g.DB }

func (g *GormDatabase) Migrate() error {
	logrus.Info("running database migrations")
	if err := g.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("database migrations completed")
	return nil
}

func (g *GormDatabase) Recreate() error {
	logrus.Warn("dropping all tables")
	if err := g.DB.Migrator().DropTable(models...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return g.Migrate()
}

func (g *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormDatabase) Close() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
