// Package store は SQLite 上の user / post テーブルへのアクセスを提供します。
// 状態を変更する操作はすべて単一トランザクションでコミットされます。
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	// ErrNotFound は対象のレコードが存在しないことを表します。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUsername は同名のユーザーが既に存在することを表します。
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrNotOwner は投稿の所有者以外が変更しようとしたことを表します。
	ErrNotOwner = errors.New("post is owned by another user")
)

// Store は gorm.DB をラップしたデータアクセス層です。
type Store struct {
	db *gorm.DB
}

// Open は path の SQLite データベースを開き、スキーマを移行します。
func Open(path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	gormLog := gormlogger.Discard
	if logger != nil {
		gormLog = gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		TranslateError: true,
		Logger:         gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite は書き込みが単一なので接続も1本に絞る
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&User{}, &Post{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じます。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping は接続が生きているかを確認します。
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
