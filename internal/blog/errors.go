package blog

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tinyblog/internal/auth"
	"github.com/yourusername/tinyblog/internal/store"
	"github.com/yourusername/tinyblog/internal/view"
)

// Kind は利用者に返す結果の種類です。
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindForbidden
	KindNotFound
	KindValidation
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failure"
	case KindStorage:
		return "storage_failure"
	default:
		return "unknown"
	}
}

const (
	NoticeForbidden = "この操作は投稿者本人のみ行えます。"
	NoticeNotFound  = "記事が見つかりません。"
	NoticeCreated   = "投稿しました。"
	NoticeUpdated   = "更新しました。"
	NoticeDeleted   = "削除しました。"
)

// Error は通知文と戻り先を持つエラーです。Message はそのまま利用者に表示されます。
type Error struct {
	Kind     Kind
	Message  string
	Redirect string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: auth.NoticeLoginRequired}
}

func forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: NoticeForbidden}
}

func notFound(err error) *Error {
	return &Error{Kind: KindNotFound, Message: NoticeNotFound, Err: err}
}

func validationFailure(message, redirect string) *Error {
	return &Error{Kind: KindValidation, Message: message, Redirect: redirect}
}

// classify はストア層のエラーを Error に変換します。
func classify(err error) *Error {
	var blogErr *Error
	switch {
	case errors.As(err, &blogErr):
		return blogErr
	case errors.Is(err, store.ErrNotFound):
		return notFound(err)
	case errors.Is(err, store.ErrNotOwner):
		return forbidden()
	default:
		return &Error{Kind: KindStorage, Message: auth.NoticeInternal, Err: err}
	}
}

func respondWithError(c *gin.Context, logger *log.Logger, err error) {
	e := classify(err)
	switch e.Kind {
	case KindUnauthenticated:
		auth.RedirectWithNotice(c, logger, "/login", e.Message)
	case KindForbidden:
		auth.RedirectWithNotice(c, logger, "/", e.Message)
	case KindNotFound:
		view.Error(c, http.StatusNotFound, e.Message)
	case KindValidation:
		redirect := e.Redirect
		if redirect == "" {
			redirect = "/"
		}
		auth.RedirectWithNotice(c, logger, redirect, e.Message)
	default:
		logger.Printf("request failed method=%s path=%s: %v", c.Request.Method, c.Request.URL.Path, e)
		view.Error(c, http.StatusInternalServerError, auth.NoticeInternal)
	}
}
