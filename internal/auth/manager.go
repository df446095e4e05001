// Package auth はユーザー登録・ログイン・セッション管理とログイン必須ガードを提供します。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/tinyblog/internal/store"
)

const (
	SessionCookieName    = "tb_session"
	sessionKeyUserID     = "user_id"
	sessionKeyUsername   = "username"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"
)

// ハンドラー間でログイン済みユーザーを共有するためのキーです。
const (
	ContextUserIDKey   = "auth.user_id"
	ContextUsernameKey = "auth.username"
)

// 利用者に表示する通知文です。
const (
	NoticeLoginRequired      = "ログインが必要です。"
	NoticeSessionExpired     = "セッションの有効期限が切れました。再度ログインしてください。"
	NoticeSessionIdle        = "しばらく操作がなかったため再ログインしてください。"
	NoticeInvalidCredentials = "ユーザー名またはパスワードが正しくありません。"
	NoticeTooManyAttempts    = "ログイン試行回数が上限に達しました。一定時間後に再度お試しください。"
	NoticeLoggedIn           = "ログインしました。"
	NoticeLoggedOut          = "ログアウトしました。"
	NoticeSignedUp           = "ユーザー登録が完了しました。ログインしてください。"
	NoticeDuplicateUsername  = "そのユーザー名は既に使われています。"
	NoticeInternal           = "サーバー内部でエラーが発生しました。"
)

// UserStore は認証に必要なユーザーの永続化操作です。
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error)
	FindUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Options はセッションの有効期限設定です。
type Options struct {
	SessionMaxAge time.Duration
	IdleTimeout   time.Duration
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users       UserStore
	hasher      Hasher
	attempts    AttemptStore
	logger      *log.Logger
	maxLifetime time.Duration
	idleTimeout time.Duration
	now         func() time.Time

	// 存在しないユーザーでも照合処理を走らせ、応答時間から有無を推測させない
	dummyDigest string
}

// NewManager は認証マネージャーを作成します。
func NewManager(users UserStore, hasher Hasher, attempts AttemptStore, opts Options, logger *log.Logger) (*Manager, error) {
	if users == nil {
		return nil, errors.New("users is nil")
	}
	if hasher == nil {
		return nil, errors.New("hasher is nil")
	}
	if attempts == nil {
		attempts = NewMemoryAttemptStore(DefaultLimitPolicy())
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.SessionMaxAge <= 0 {
		opts.SessionMaxAge = 12 * time.Hour
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}

	dummy, err := hasher.Hash("tinyblog-dummy-password")
	if err != nil {
		return nil, err
	}

	return &Manager{
		users:       users,
		hasher:      hasher,
		attempts:    attempts,
		logger:      logger,
		maxLifetime: opts.SessionMaxAge,
		idleTimeout: opts.IdleTimeout,
		now:         time.Now,
		dummyDigest: dummy,
	}, nil
}

// NewSessionStore は署名付きクッキーのセッションストアを作成します。
func NewSessionStore(secret string, maxAge time.Duration, secure bool) sessions.Store {
	cookieStore := cookie.NewStore([]byte(secret))
	cookieStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return cookieStore
}

// CurrentUserID は RequireLogin が設定したユーザーIDを返します。
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// CurrentUsername は RequireLogin が設定したユーザー名を返します。
func CurrentUsername(c *gin.Context) string {
	return c.GetString(ContextUsernameKey)
}

// RedirectWithNotice は通知をセッションに積んでリダイレクトし、以降のハンドラーを中断します。
func RedirectWithNotice(c *gin.Context, logger *log.Logger, location, notice string) {
	session := sessions.Default(c)
	if notice != "" {
		session.AddFlash(notice)
	}
	if err := session.Save(); err != nil {
		logger.Printf("failed to save session: %v", err)
	}
	c.Redirect(http.StatusFound, location)
	c.Abort()
}

// PageData はテンプレートに渡す共通データ（通知・ログインユーザー・CSRFトークン）を data に追加します。
func PageData(c *gin.Context, logger *log.Logger, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	session := sessions.Default(c)

	notices := []string{}
	for _, f := range session.Flashes() {
		if s, ok := f.(string); ok {
			notices = append(notices, s)
		}
	}
	if len(notices) > 0 {
		if err := session.Save(); err != nil {
			logger.Printf("failed to save session: %v", err)
		}
	}

	userID, username, _ := sessionUser(session)
	csrf, _ := session.Get(sessionKeyCSRF).(string)

	data["Notices"] = notices
	data["CurrentUser"] = username
	data["CurrentUserID"] = userID
	data["CSRFToken"] = csrf
	return data
}

func sessionUser(session sessions.Session) (uint, string, bool) {
	id, ok := session.Get(sessionKeyUserID).(uint)
	if !ok || id == 0 {
		return 0, "", false
	}
	name, _ := session.Get(sessionKeyUsername).(string)
	return id, name, true
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
