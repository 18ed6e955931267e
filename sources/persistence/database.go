package persistence

import (
	"chaldea/sources/configuration"
	"chaldea/sources/persistence/entities"
	"chaldea/sources/tracing"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDatabase returns nil when the database is disabled; consumers treat a nil
// handle as "journal off".
func NewPostgresDatabase(config *configuration.Config, log *tracing.Logger) *gorm.DB {
	if !config.Database.Enabled {
		log.I("Database disabled, invocation journal is off")
		return nil
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		config.Database.Host, config.Database.User, config.Database.Password, config.Database.DBName, config.Database.Port, config.Database.SSLMode, config.Database.TimeZone,
	)

	gormlogger := logger.New(
		&gormtracer{logger: log},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger})
	if err != nil {
		log.F("Failed to connect to database", tracing.InnerError, err)
	}

	sqldb, err := db.DB()
	if err != nil {
		log.F("Failed to get underlying sql.DB", tracing.InnerError, err)
	}

	sqldb.SetMaxOpenConns(10)
	sqldb.SetMaxIdleConns(2)
	sqldb.SetConnMaxLifetime(2 * time.Hour)
	sqldb.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.AutoMigrate(&entities.Invocation{}); err != nil {
		log.F("Failed to migrate database", tracing.InnerError, err)
	}

	log.I("Database initialized successfully")
	return db
}
