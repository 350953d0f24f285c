package database

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"fmt"
	"time"

	applog "coursehub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models 是需要自动迁移的全部表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Course{},
		&model.Chapter{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.EarlyUnlock{},
		&model.LessonProgress{},
		&model.Assignment{},
		&model.AssignmentSubmission{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizSubmission{},
		&model.Blog{},
		&model.PointEvent{},
	}
}

// Dialector picks the gorm driver for database.driver.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// sqlite 只允许单写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	applog.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	applog.Log.Info("Database migration completed")
	return nil
}
