package database

import (
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/questionbank"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialector 根据配置选择数据库驱动，默认 sqlite
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
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
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case DriverSQLite, "":
		return sqlite.Open(cfg.Path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// InitDB 连接数据库，migrate 为 true 时执行建表与种子数据
func InitDB(cfg *config.DatabaseConfig, mode string, migrate bool) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

// OpenMemory 打开一个独立的内存 sqlite 库并迁移，name 相同的连接共享数据
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 建表并在题库为空时写入内置参考题
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.QuestionUsage{},
		&model.InterviewAttempt{},
		&model.FaceEmbedding{},
	)
	if err != nil {
		return err
	}

	var count int64
	db.Model(&model.Question{}).Count(&count)
	if count == 0 {
		seed, err := questionbank.SeedQuestions()
		if err != nil {
			return err
		}
		if len(seed) > 0 {
			if err := db.CreateInBatches(seed, 100).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
