package blog

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tinyblog/internal/auth"
	"github.com/yourusername/tinyblog/internal/metrics"
	"github.com/yourusername/tinyblog/internal/store"
)

// RequireOwnership は現在のユーザーが post の所有者であるかを検証します。
// 比較はユーザーIDで行い、ユーザー名は使いません。
func RequireOwnership(c *gin.Context, post *store.Post) error {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		metrics.AuthEvent(metrics.EventUnauthorized)
		return unauthenticated()
	}
	if !post.OwnedBy(userID) {
		metrics.AuthEvent(metrics.EventForbidden)
		return forbidden()
	}
	return nil
}

func parsePostID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, notFound(err)
	}
	return uint(id), nil
}

func (h *Handler) loadPost(c *gin.Context) (*store.Post, error) {
	id, err := parsePostID(c)
	if err != nil {
		return nil, err
	}
	post, err := h.posts.FindPost(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// loadOwnedPost は投稿を取得し、所有者でなければ Forbidden を返します。
func (h *Handler) loadOwnedPost(c *gin.Context) (*store.Post, error) {
	post, err := h.loadPost(c)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnership(c, post); err != nil {
		return nil, err
	}
	return post, nil
}
