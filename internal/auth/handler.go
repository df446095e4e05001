package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/tinyblog/internal/form"
	"github.com/yourusername/tinyblog/internal/metrics"
	"github.com/yourusername/tinyblog/internal/store"
	"github.com/yourusername/tinyblog/internal/view"
)

type credentialsForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type signupForm struct {
	Username string `form:"username" binding:"required,min=3,max=50,alphanum"`
	Password string `form:"password" binding:"required,min=8,max=72"`
}

var credentialLabels = form.Labels{
	"Username": "ユーザー名",
	"Password": "パスワード",
}

// LoginForm は GET /login のハンドラーです。
func (m *Manager) LoginForm(c *gin.Context) {
	m.renderCredentialsForm(c, "login.html", "ログイン")
}

// SignupForm は GET /signup のハンドラーです。
func (m *Manager) SignupForm(c *gin.Context) {
	m.renderCredentialsForm(c, "signup.html", "ユーザー登録")
}

// ログイン前のフォームにも CSRF トークンを埋め込み、他サイトからの送信を拒否する
func (m *Manager) renderCredentialsForm(c *gin.Context, name, title string) {
	token, err := m.ensureCSRFToken(c)
	if err != nil {
		m.logger.Printf("failed to issue csrf token: %v", err)
		view.Error(c, http.StatusInternalServerError, NoticeInternal)
		return
	}
	c.Header(csrfHeader, token)
	c.HTML(http.StatusOK, name, PageData(c, m.logger, gin.H{"Title": title}))
}

func (m *Manager) rejectForgedForm(c *gin.Context) bool {
	if msg := checkCSRFToken(c); msg != "" {
		metrics.AuthEvent(metrics.EventCSRFRejected)
		view.Error(c, http.StatusForbidden, msg)
		return true
	}
	return false
}

// Signup は POST /signup のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	if m.rejectForgedForm(c) {
		return
	}

	var req signupForm
	if err := c.ShouldBind(&req); err != nil {
		metrics.AuthEvent(metrics.EventSignupRejected)
		RedirectWithNotice(c, m.logger, "/signup", form.Message(err, credentialLabels))
		return
	}

	digest, err := m.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			metrics.AuthEvent(metrics.EventSignupRejected)
			RedirectWithNotice(c, m.logger, "/signup", "パスワードは72バイト以内で入力してください。")
			return
		}
		m.logger.Printf("failed to hash password: %v", err)
		view.Error(c, http.StatusInternalServerError, NoticeInternal)
		return
	}

	user, err := m.users.CreateUser(c.Request.Context(), req.Username, digest)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			metrics.AuthEvent(metrics.EventSignupRejected)
			RedirectWithNotice(c, m.logger, "/signup", NoticeDuplicateUsername)
			return
		}
		m.logger.Printf("failed to create user: %v", err)
		view.Error(c, http.StatusInternalServerError, NoticeInternal)
		return
	}

	metrics.AuthEvent(metrics.EventSignup)
	m.logger.Printf("user registered id=%d", user.ID)
	RedirectWithNotice(c, m.logger, "/login", NoticeSignedUp)
}

// Login は POST /login のハンドラーです。
// ユーザーが存在しない場合とパスワード不一致の場合は同じ通知を返します。
func (m *Manager) Login(c *gin.Context) {
	if m.rejectForgedForm(c) {
		return
	}

	var req credentialsForm
	if err := c.ShouldBind(&req); err != nil {
		RedirectWithNotice(c, m.logger, "/login", form.Message(err, credentialLabels))
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()

	retryAfter, err := m.attempts.LockedFor(ctx, ip)
	if err != nil {
		m.logger.Printf("failed to read login attempts ip=%s: %v", ip, err)
	}
	if retryAfter > 0 {
		metrics.AuthEvent(metrics.EventLoginLocked)
		// Retry-After は秒数またはHTTP-Date形式が推奨されているため秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		RedirectWithNotice(c, m.logger, "/login", NoticeTooManyAttempts)
		return
	}

	user, err := m.users.FindUserByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		m.logger.Printf("failed to look up user: %v", err)
		view.Error(c, http.StatusInternalServerError, NoticeInternal)
		return
	}

	digest := m.dummyDigest
	if user != nil {
		digest = user.PasswordHash
	}
	if !m.hasher.Verify(digest, req.Password) || user == nil {
		metrics.AuthEvent(metrics.EventLoginFailed)
		if _, err := m.attempts.RecordFailure(ctx, ip); err != nil {
			m.logger.Printf("failed to record login failure ip=%s: %v", ip, err)
		}
		RedirectWithNotice(c, m.logger, "/login", NoticeInvalidCredentials)
		return
	}

	if err := m.attempts.Reset(ctx, ip); err != nil {
		m.logger.Printf("failed to reset login attempts ip=%s: %v", ip, err)
	}

	token, err := generateToken()
	if err != nil {
		m.logger.Printf("failed to generate csrf token: %v", err)
		view.Error(c, http.StatusInternalServerError, NoticeInternal)
		return
	}

	session := sessions.Default(c)
	// 以前のセッション内容を引き継がない
	session.Clear()
	now := m.now()
	session.Set(sessionKeyUserID, user.ID)
	session.Set(sessionKeyUsername, user.Username)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)

	metrics.AuthEvent(metrics.EventLoginSucceeded)
	c.Header(csrfHeader, token)
	RedirectWithNotice(c, m.logger, "/", NoticeLoggedIn)
}

// Logout は GET /logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	metrics.AuthEvent(metrics.EventLogout)
	RedirectWithNotice(c, m.logger, "/login", NoticeLoggedOut)
}
