package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/tinyblog/internal/auth"
	"github.com/yourusername/tinyblog/internal/metrics"
	"github.com/yourusername/tinyblog/internal/view"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

func (a *App) buildRouter() (*gin.Engine, error) {
	gin.SetMode(a.cfg.GinMode)

	router := gin.New()
	// ログイン試行の制限は ClientIP 単位なので、転送ヘッダーは指定したプロキシからのものだけ使う
	if err := router.SetTrustedProxies(splitList(a.cfg.TrustedProxies)); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	tmpl, err := view.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(
		requestID(),
		gin.LoggerWithConfig(gin.LoggerConfig{
			Output:    a.logWriter,
			Formatter: logFormatter,
			SkipPaths: []string{"/health", "/metrics"},
		}),
		gin.RecoveryWithWriter(a.logWriter),
		metrics.Middleware(),
	)

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore := auth.NewSessionStore(a.cfg.SessionSecret, a.cfg.SessionMaxAge, a.cfg.GinMode == gin.ReleaseMode)
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitOrigins(a.cfg.CORSAllowedOrigins)
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-CSRF-Token"}
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token", requestIDHeader}
	router.Use(cors.New(corsConfig))

	a.setupRoutes(router)
	return router, nil
}

// setupRoutes はルート表を登録します。ガードは登録時にミドルウェアとして合成します。
func (a *App) setupRoutes(router *gin.Engine) {
	router.GET("/health", a.handleHealth)
	router.GET("/metrics", metrics.Handler())

	// ログイン前に使う画面なので CSRF 検証は行わない
	router.GET("/signup", a.auth.SignupForm)
	router.POST("/signup", a.auth.Signup)
	router.GET("/login", a.auth.LoginForm)
	router.POST("/login", a.auth.Login)

	// 一覧・閲覧もログイン必須とする
	protected := router.Group("")
	protected.Use(a.auth.RequireLogin(), a.auth.VerifyCSRF())
	{
		protected.GET("/logout", a.auth.Logout)

		protected.GET("/", a.posts.Index)
		protected.GET("/new", a.posts.NewForm)
		protected.POST("/new", a.posts.Create)
		protected.GET("/:id/show", a.posts.Show)
		protected.GET("/:id/edit", a.posts.EditForm)
		protected.POST("/:id/edit", a.posts.Update)
		protected.GET("/:id/delete", a.posts.Delete)
		protected.POST("/:id/delete", a.posts.Delete)
	}

	router.NoRoute(func(c *gin.Context) {
		view.Error(c, http.StatusNotFound, "ページが見つかりません。")
	})
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func (a *App) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Printf("health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"service": "tinyblog",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "tinyblog",
	})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func logFormatter(param gin.LogFormatterParams) string {
	rid, _ := param.Keys[requestIDKey].(string)
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v | rid=%s %s\n",
		param.TimeStamp.Format("2006/01/02 - 15:04:05"),
		param.StatusCode,
		param.Latency,
		param.ClientIP,
		param.Method,
		param.Path,
		rid,
		param.ErrorMessage,
	)
}

func splitOrigins(raw string) []string {
	origins := splitList(raw)
	if len(origins) == 0 {
		origins = []string{"http://localhost:8080"}
	}
	return origins
}

// splitList はカンマ区切りの値を分割し、空要素を除きます。空文字列なら nil を返します。
func splitList(raw string) []string {
	var items []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return items
}
