// Package app はアプリケーション全体の依存関係を組み立て、ルーティングを定義します。
package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tinyblog/internal/auth"
	"github.com/yourusername/tinyblog/internal/blog"
	"github.com/yourusername/tinyblog/internal/config"
	"github.com/yourusername/tinyblog/internal/logging"
	"github.com/yourusername/tinyblog/internal/store"
)

// App はストア・セッション・ハンドラーを保持するアプリケーションコンテキストです。
// グローバル変数は使わず、New で作成して Close で解放します。
type App struct {
	cfg       *config.Config
	logWriter io.Writer
	logger    *log.Logger
	store     *store.Store
	auth      *auth.Manager
	posts     *blog.Handler
	router    *gin.Engine
	closers   []func() error
}

// New は設定からアプリケーションを初期化します。logWriter が nil の場合は標準出力に書き込みます。
func New(cfg *config.Config, logWriter io.Writer) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logWriter == nil {
		logWriter = os.Stdout
	}

	a := &App{
		cfg:       cfg,
		logWriter: logWriter,
		logger:    logging.New(logWriter, "tinyblog"),
	}

	st, err := store.Open(cfg.DatabasePath, logging.New(logWriter, "gorm"))
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	attempts, err := a.newAttemptStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	manager, err := auth.NewManager(st, auth.NewBcryptHasher(cfg.BcryptCost), attempts, auth.Options{
		SessionMaxAge: cfg.SessionMaxAge,
		IdleTimeout:   cfg.SessionIdleTime,
	}, a.logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create auth manager: %w", err)
	}
	a.auth = manager

	posts, err := blog.NewHandler(st, a.logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create blog handler: %w", err)
	}
	a.posts = posts

	router, err := a.buildRouter()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.router = router

	return a, nil
}

func (a *App) newAttemptStore() (auth.AttemptStore, error) {
	policy := auth.DefaultLimitPolicy()
	if a.cfg.RedisURL == "" {
		return auth.NewMemoryAttemptStore(policy), nil
	}
	rs, err := auth.NewRedisAttemptStoreFromURL(a.cfg.RedisURL, policy)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rs.Close)
	a.logger.Printf("login attempts are shared via redis")
	return rs, nil
}

// Router は HTTP ハンドラーを返します。
func (a *App) Router() *gin.Engine {
	return a.router
}

// Store はデータアクセス層を返します。
func (a *App) Store() *store.Store {
	return a.store
}

// Logger はアプリケーションのロガーを返します。
func (a *App) Logger() *log.Logger {
	return a.logger
}

// Close は保持しているリソースを作成の逆順で解放します。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
