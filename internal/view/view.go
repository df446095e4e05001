// Package view は埋め込み HTML テンプレートを提供します。
package view

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// Load は全テンプレートを解析します。ページは "index.html" のようにファイル名で参照します。
func Load() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}

// MustLoad は Load に失敗した場合 panic します。
func MustLoad() *template.Template {
	return template.Must(Load())
}

// Error はエラーページを描画して処理を中断します。
func Error(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
	c.Abort()
}
