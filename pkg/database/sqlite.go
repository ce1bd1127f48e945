package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectSQLite 打开嵌入式 SQLite 数据库 (设备本地的 Durable Store)
// path: 文件路径, 或 "file::memory:?cache=shared" 用于测试
func ConnectSQLite(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // 主键冲突 -> gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("无法打开 SQLite 数据库 %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite 单写者: 限制为一个连接，避免 "database is locked"
	sqlDB.SetMaxOpenConns(1)

	// WAL 模式提升并发读; 内存库不支持 WAL, 忽略错误
	_ = db.Exec("PRAGMA journal_mode=WAL").Error
	if err := db.Exec("PRAGMA foreign_keys=ON").Error; err != nil {
		return nil, fmt.Errorf("启用 foreign_keys 失败: %w", err)
	}

	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
