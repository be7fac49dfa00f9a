package db

import (
	"log"  // Writer for the gorm logger
	"os"   // Stdout
	"time" // Pool lifetimes

	"eco_donate/internal/config" // Configuration

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
	"gorm.io/gorm/logger"  // SQL logging
)

// Open connects to MySQL and tunes the connection pool
func Open(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Info
	if cfg.IsProd {
		level = logger.Error // Production only records errors
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)                  // Idle connections kept
	sqlDB.SetMaxOpenConns(100)                 // Open connection cap
	sqlDB.SetConnMaxLifetime(time.Hour)        // Recycle connections hourly
	sqlDB.SetConnMaxIdleTime(30 * time.Minute) // Drop long-idle connections
	return db, nil
}
