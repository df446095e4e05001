// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// devSessionSecret は release 以外のモードで SESSION_SECRET が未設定のときに使う署名鍵です。
const devSessionSecret = "tinyblog-development-session-secret-do-not-use"

// minSessionSecretLength は release モードで要求する署名鍵の最小長（バイト）です。
const minSessionSecretLength = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret   string        // セッション署名用の秘密鍵
	SessionMaxAge   time.Duration // ログインからの絶対有効期限
	SessionIdleTime time.Duration // 無操作でセッションを失効させるまでの時間

	// 永続化設定
	DatabasePath string // SQLite データベースファイルのパス

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// リバースプロキシ設定
	TrustedProxies string // X-Forwarded-For を信頼するプロキシ（カンマ区切り、空ならどれも信頼しない）

	// 認証設定
	BcryptCost int    // bcrypt のコスト
	RedisURL   string // ログイン試行回数を共有する Redis（空ならプロセス内で保持）

	// ログ設定
	LogDir string // ログファイルの出力先（空なら標準出力のみ）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionMaxAge:   time.Duration(getEnvAsInt("SESSION_MAX_AGE_HOURS", 12)) * time.Hour,
		SessionIdleTime: time.Duration(getEnvAsInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,

		DatabasePath: getEnv("DATABASE_PATH", "blog.db"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080"),
		TrustedProxies:     getEnv("TRUSTED_PROXIES", ""),

		BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		RedisURL:   getEnv("REDIS_URL", ""),

		LogDir: getEnv("LOG_DIR", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 開発時は固定の署名鍵で起動できるようにする
	if config.SessionSecret == "" {
		config.SessionSecret = devSessionSecret
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_HOURS must be positive")
	}
	if c.SessionIdleTime <= 0 {
		return fmt.Errorf("SESSION_IDLE_MINUTES must be positive")
	}

	// 本番環境では署名鍵を必ず外から与える
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < minSessionSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", minSessionSecretLength)
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
