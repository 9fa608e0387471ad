package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"muse-go/internal/config"
	"muse-go/internal/models"
)

// InitDB initializes the database connection using the provided configuration.
func InitDB(cfg config.DatabaseConfig, l *log.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		var dsnParts []string
		dsnParts = append(dsnParts, fmt.Sprintf("host=%s", cfg.Host))
		dsnParts = append(dsnParts, fmt.Sprintf("port=%d", cfg.Port))
		dsnParts = append(dsnParts, fmt.Sprintf("user=%s", cfg.User))
		dsnParts = append(dsnParts, fmt.Sprintf("dbname=%s", cfg.DBName))
		if cfg.Password != "" {
			dsnParts = append(dsnParts, fmt.Sprintf("password=%s", cfg.Password))
		}
		dsnParts = append(dsnParts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
		dialector = postgres.Open(strings.Join(dsnParts, " "))
		l.Debug("connecting to postgres", "host", cfg.Host, "port", cfg.Port, "db", cfg.DBName)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
		l.Debug("opening sqlite database", "path", cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(l)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == "sqlite" {
		// sqlite 只允许单个写连接
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewGormLogger routes GORM's SQL logging through the application logger.
func NewGormLogger(l *log.Logger) logger.Interface {
	level := logger.Warn
	if l.GetLevel() <= log.DebugLevel {
		level = logger.Info
	}
	return logger.New(
		l.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// AutoMigrateTables runs GORM's auto-migration feature for all defined models.
func AutoMigrateTables(db *gorm.DB) error {
	log.Info("开始数据库表结构迁移...")
	err := db.AutoMigrate(
		&models.User{},
		&models.Song{},
		&models.Swipe{},
		&models.Discussion{},
		&models.Message{},
		&models.Purchase{},
	)
	if err != nil {
		log.Error("数据库迁移失败", "err", err)
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	log.Info("数据库迁移完成。")
	return nil
}

// lockForUpdate 在 PostgreSQL 上为读取加行锁 (SELECT ... FOR UPDATE)。
// sqlite 没有行锁，单连接已串行化写入。
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
