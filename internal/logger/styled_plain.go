package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// PlainStyledLogger implements StyledLogger without formatting
type PlainStyledLogger struct {
	logger *slog.Logger
}

func NewPlainStyledLogger(logger *slog.Logger) *PlainStyledLogger {
	return &PlainStyledLogger{logger: logger}
}

func (sl *PlainStyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *PlainStyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *PlainStyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *PlainStyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *PlainStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s (%d)", msg, count), args...)
}

func (sl *PlainStyledLogger) InfoWithUpstream(msg string, upstream string, args ...any) {
	sl.logger.Info(msg+" "+upstream, args...)
}

func (sl *PlainStyledLogger) WarnWithUpstream(msg string, upstream string, args ...any) {
	sl.logger.Warn(msg+" "+upstream, args...)
}

func (sl *PlainStyledLogger) InfoWithVirtualModel(msg string, virtualModel string, args ...any) {
	sl.logger.Info(msg+" "+virtualModel, args...)
}

func (sl *PlainStyledLogger) WarnWithVirtualModel(msg string, virtualModel string, args ...any) {
	sl.logger.Warn(msg+" "+virtualModel, args...)
}

func (sl *PlainStyledLogger) InfoFallbackAdvance(virtualModel, from, to, reason string, args ...any) {
	sl.logger.Info(fmt.Sprintf("Fallback %s: %s -> %s (%s)", virtualModel, from, to, reason), args...)
}

func (sl *PlainStyledLogger) InfoWithContext(msg string, subject string, ctx LogContext) {
	sl.logWithContext(slog.LevelInfo, msg, subject, ctx)
}

func (sl *PlainStyledLogger) WarnWithContext(msg string, subject string, ctx LogContext) {
	sl.logWithContext(slog.LevelWarn, msg, subject, ctx)
}

func (sl *PlainStyledLogger) logWithContext(level slog.Level, msg string, subject string, ctx LogContext) {
	sl.logger.Log(context.Background(), level, msg+" "+subject, ctx.UserArgs...)
	logDetailed(sl.logger, level, msg, subject, ctx)
}

func (sl *PlainStyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

func (sl *PlainStyledLogger) With(args ...any) StyledLogger {
	return &PlainStyledLogger{logger: sl.logger.With(args...)}
}

func (sl *PlainStyledLogger) WithRequestID(requestID string) StyledLogger {
	return sl.With("request_id", requestID)
}

// logDetailed writes the file-only record carrying the detailed arguments
func logDetailed(logger *slog.Logger, level slog.Level, msg string, subject string, ctx LogContext) {
	if len(ctx.DetailedArgs) == 0 {
		return
	}
	allArgs := make([]any, 0, len(ctx.UserArgs)+len(ctx.DetailedArgs)+2)
	allArgs = append(allArgs, "subject", subject)
	allArgs = append(allArgs, ctx.UserArgs...)
	allArgs = append(allArgs, ctx.DetailedArgs...)

	detailedCtx := context.WithValue(context.Background(), DefaultDetailedCookie, true)
	logger.Log(detailedCtx, level, msg, allArgs...)
}
