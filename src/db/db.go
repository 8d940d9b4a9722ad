package db

import (
	"tourbook/src/config"
	"tourbook/src/lib"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// newLogger routes gorm output through the shared API logger. Slow queries
// and errors are logged; development also logs every statement.
func newLogger() logger.Interface {
	level := logger.Warn
	if config.IsDevelopment() {
		level = logger.Info
	}
	return logger.New(lib.GetLogger(), logger.Config{
		SlowThreshold:             config.DBSlowQuery(),
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to postgres and sizes the pool from config.
func Open(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger()})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(config.DBMaxIdleConns())
	sqlDB.SetMaxOpenConns(config.DBMaxOpenConns())
	return conn, nil
}

func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	conn, err := Open(config.GetDSN())
	if err != nil {
		lib.GetLogger().WithError(err).Fatal("database connection failed")
	}
	db = conn
	return conn
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}
