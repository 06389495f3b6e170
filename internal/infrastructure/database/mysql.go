package database

import (
	"log"
	"time"

	"github.com/leon37/finsight/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewMySQLConnection(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Fatal: 无法连接数据库: %v", err)
	}

	// 自动建表 (Auto Migrate)
	if err := db.AutoMigrate(&model.User{}, &model.Transaction{}, &model.Budget{}); err != nil {
		log.Fatalf("Fatal: 数据库迁移失败: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db
}
