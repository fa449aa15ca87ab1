package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the logging surface handed to handlers and infrastructure code
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger

	// LogRequest records a finished HTTP request at a level derived from
	// its status code.
	LogRequest(ctx context.Context, req RequestLog, args ...any)
	LogError(err error, msg string, args ...any)
}

// RequestLog describes one served HTTP request
type RequestLog struct {
	Method     string
	Path       string
	StatusCode int
	Latency    time.Duration
	ClientIP   string
}

// SlogLogger implements Logger on top of slog
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) Logger {
	return &SlogLogger{logger: logger}
}

// NewLogger builds a slog logger from a level name and a format, text or
// json, writing to w.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

func (l *SlogLogger) LogRequest(ctx context.Context, req RequestLog, args ...any) {
	level := slog.LevelInfo
	switch {
	case req.StatusCode >= 500:
		level = slog.LevelError
	case req.StatusCode >= 400:
		level = slog.LevelWarn
	}

	attrs := append([]any{
		"method", req.Method,
		"path", req.Path,
		"status_code", req.StatusCode,
		"latency_ms", req.Latency.Milliseconds(),
		"client_ip", req.ClientIP,
	}, args...)
	l.logger.Log(ctx, level, "HTTP Request", attrs...)
}

func (l *SlogLogger) LogError(err error, msg string, args ...any) {
	l.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// LoggerMiddleware logs every request once it has been served. Each of
// contextKeys that an earlier middleware stored on the gin context is added
// to the entry under the same name.
func LoggerMiddleware(logger Logger, contextKeys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		var attrs []any
		for _, key := range contextKeys {
			if v := c.GetString(key); v != "" {
				attrs = append(attrs, key, v)
			}
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		logger.LogRequest(c.Request.Context(), RequestLog{
			Method:     c.Request.Method,
			Path:       path,
			StatusCode: c.Writer.Status(),
			Latency:    time.Since(start),
			ClientIP:   c.ClientIP(),
		}, attrs...)
	}
}
