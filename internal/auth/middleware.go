package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/tinyblog/internal/metrics"
	"github.com/yourusername/tinyblog/internal/view"
)

// RequireLogin はセッションを検証するミドルウェアを返します。
// 未ログインや期限切れの場合は通知付きで /login にリダイレクトし、状態は変更しません。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, username, ok := sessionUser(session)
		if !ok {
			metrics.AuthEvent(metrics.EventUnauthorized)
			RedirectWithNotice(c, m.logger, "/login", NoticeLoginRequired)
			return
		}

		now := m.now()
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		lastActive := readUnix(session.Get(sessionKeyLastActive))

		if issuedAt.IsZero() || now.Sub(issuedAt) > m.maxLifetime {
			session.Clear()
			RedirectWithNotice(c, m.logger, "/login", NoticeSessionExpired)
			return
		}

		if lastActive.IsZero() || now.Sub(lastActive) > m.idleTimeout {
			session.Clear()
			RedirectWithNotice(c, m.logger, "/login", NoticeSessionIdle)
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		if err := session.Save(); err != nil {
			m.logger.Printf("failed to save session: %v", err)
		}
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUsernameKey, username)
		c.Next()
	}
}

// VerifyCSRF は状態を変更するリクエストの CSRF トークンを検証するミドルウェアです。
// トークンは csrf_token フォーム項目か X-CSRF-Token ヘッダーで受け取ります。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if msg := checkCSRFToken(c); msg != "" {
			metrics.AuthEvent(metrics.EventCSRFRejected)
			view.Error(c, http.StatusForbidden, msg)
			return
		}
		c.Next()
	}
}

// checkCSRFToken はセッションのトークンと送信されたトークンを比較し、不一致なら通知文を返します。
func checkCSRFToken(c *gin.Context) string {
	session := sessions.Default(c)
	expected, ok := session.Get(sessionKeyCSRF).(string)
	if !ok || expected == "" {
		return "CSRF トークンが設定されていません。"
	}

	received := c.GetHeader(csrfHeader)
	if received == "" {
		received = c.PostForm(csrfFormField)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return "CSRF トークンが一致しません。"
	}
	return ""
}

// ensureCSRFToken は未ログインのセッションにもトークンを発行し、既存のものがあれば再利用します。
func (m *Manager) ensureCSRFToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		return "", err
	}
	return token, nil
}
