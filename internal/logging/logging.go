// Package logging はアプリケーション共通の *log.Logger を組み立てます。
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logFilename = "app.log"

// Writer はログの出力先を返します。
// logDir が空なら標準出力のみ、指定されていれば標準出力とローテーション付きファイルの両方に書き込みます。
func Writer(logDir string) (io.Writer, error) {
	if logDir == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFilename),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, fileWriter), nil
}

// New は prefix 付きの *log.Logger を作成します。
func New(w io.Writer, prefix string) *log.Logger {
	if w == nil {
		w = io.Discard
	}
	if prefix != "" {
		prefix = "[" + prefix + "] "
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmsgprefix)
}
