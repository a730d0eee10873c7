// Package logging は logrus ベースのロガーとリクエストログ用ミドルウェアを提供します。
package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名です。
const RequestIDHeader = "X-Request-ID"

// ContextRequestIDKey は gin.Context にリクエストIDを保存するキーです。
const ContextRequestIDKey = "request.id"

// New はログレベルと実行モードに応じたロガーを作成します。
// release モードでは JSON、それ以外ではテキスト形式で出力します。
func New(level string, release bool, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}

	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if release {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Middleware はリクエストIDを割り当て、1リクエストにつき1行のアクセスログを出力します。
func Middleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request completed")
		case status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// FromContext はリクエストIDを付与したログエントリを返します。
func FromContext(c *gin.Context, logger logrus.FieldLogger) logrus.FieldLogger {
	if id, ok := c.Get(ContextRequestIDKey); ok {
		return logger.WithField("request_id", id)
	}
	return logger
}

// LogError はエラーを構造化して出力します。
// oops エラーの場合はコードとコンテキストもフィールドに展開します。
func LogError(logger logrus.FieldLogger, msg string, err error) {
	fields := logrus.Fields{"error": err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			fields["code"] = code
		}
		if domain := oopsErr.Domain(); domain != "" {
			fields["domain"] = domain
		}
		for k, v := range oopsErr.Context() {
			fields[k] = v
		}
	}
	logger.WithFields(fields).Error(msg)
}
