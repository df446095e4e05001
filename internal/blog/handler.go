// Package blog は記事の一覧・作成・編集・削除のハンドラーを提供します。
package blog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yourusername/tinyblog/internal/auth"
	"github.com/yourusername/tinyblog/internal/form"
	"github.com/yourusername/tinyblog/internal/metrics"
	"github.com/yourusername/tinyblog/internal/store"
)

// PostStore は記事の永続化操作です。
type PostStore interface {
	ListPosts(ctx context.Context) ([]store.Post, error)
	FindPost(ctx context.Context, id uint) (*store.Post, error)
	CreatePost(ctx context.Context, ownerID uint, title, body string) (*store.Post, error)
	UpdatePost(ctx context.Context, id, ownerID uint, title, body string) error
	DeletePost(ctx context.Context, id, ownerID uint) error
}

// Handler は記事まわりのハンドラーをまとめた構造体です。
type Handler struct {
	posts  PostStore
	logger *log.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(posts PostStore, logger *log.Logger) (*Handler, error) {
	if posts == nil {
		return nil, errors.New("posts is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{posts: posts, logger: logger}, nil
}

type postForm struct {
	Title string `form:"title" binding:"required,max=20"`
	Body  string `form:"body" binding:"required,max=140"`
}

var postLabels = form.Labels{
	"Title": "タイトル",
	"Body":  "本文",
}

// bindPostForm は入力を読み取り、前後の空白を除いてから検証します。
func bindPostForm(c *gin.Context, redirect string) (*postForm, error) {
	var req postForm
	if err := c.ShouldBind(&req); err != nil {
		return nil, validationFailure(form.Message(err, postLabels), redirect)
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return nil, validationFailure(form.Message(err, postLabels), redirect)
	}
	return &req, nil
}

// Index は GET / のハンドラーです。
func (h *Handler) Index(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.HTML(http.StatusOK, "index.html", auth.PageData(c, h.logger, gin.H{"Posts": posts}))
}

// NewForm は GET /new のハンドラーです。
func (h *Handler) NewForm(c *gin.Context) {
	c.HTML(http.StatusOK, "new.html", auth.PageData(c, h.logger, gin.H{"Title": "新規投稿"}))
}

// Create は POST /new のハンドラーです。所有者はセッションのユーザーになります。
func (h *Handler) Create(c *gin.Context) {
	ownerID, ok := auth.CurrentUserID(c)
	if !ok {
		respondWithError(c, h.logger, unauthenticated())
		return
	}

	req, err := bindPostForm(c, "/new")
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), ownerID, req.Title, req.Body)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	metrics.PostMutation(metrics.OpCreate)
	h.logger.Printf("post created id=%d owner=%d", post.ID, ownerID)
	auth.RedirectWithNotice(c, h.logger, "/", NoticeCreated)
}

// Show は GET /:id/show のハンドラーです。
func (h *Handler) Show(c *gin.Context) {
	post, err := h.loadPost(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.HTML(http.StatusOK, "show.html", auth.PageData(c, h.logger, gin.H{"Title": post.Title, "Post": post}))
}

// EditForm は GET /:id/edit のハンドラーです。
func (h *Handler) EditForm(c *gin.Context) {
	post, err := h.loadOwnedPost(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.HTML(http.StatusOK, "edit.html", auth.PageData(c, h.logger, gin.H{"Title": "記事の編集", "Post": post}))
}

// Update は POST /:id/edit のハンドラーです。送信時にも所有者を再確認します。
func (h *Handler) Update(c *gin.Context) {
	post, err := h.loadOwnedPost(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	req, err := bindPostForm(c, fmt.Sprintf("/%d/edit", post.ID))
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	if err := h.posts.UpdatePost(c.Request.Context(), post.ID, post.UserID, req.Title, req.Body); err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	metrics.PostMutation(metrics.OpUpdate)
	h.logger.Printf("post updated id=%d owner=%d", post.ID, post.UserID)
	auth.RedirectWithNotice(c, h.logger, "/", NoticeUpdated)
}

// Delete は GET/POST /:id/delete のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	post, err := h.loadOwnedPost(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	if err := h.posts.DeletePost(c.Request.Context(), post.ID, post.UserID); err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	metrics.PostMutation(metrics.OpDelete)
	h.logger.Printf("post deleted id=%d owner=%d", post.ID, post.UserID)
	auth.RedirectWithNotice(c, h.logger, "/", NoticeDeleted)
}
