package logger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thushan/switchback/theme"
)

// PrettyStyledLogger implements StyledLogger with pterm formatting
type PrettyStyledLogger struct {
	logger *slog.Logger
	Theme  *theme.Theme
}

func NewPrettyStyledLogger(logger *slog.Logger, theme *theme.Theme) *PrettyStyledLogger {
	return &PrettyStyledLogger{
		logger: logger,
		Theme:  theme,
	}
}

func (sl *PrettyStyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *PrettyStyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *PrettyStyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *PrettyStyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *PrettyStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Counts.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *PrettyStyledLogger) InfoWithUpstream(msg string, upstream string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, sl.Theme.Upstream.Sprint(upstream)), args...)
}

func (sl *PrettyStyledLogger) WarnWithUpstream(msg string, upstream string, args ...any) {
	sl.logger.Warn(fmt.Sprintf("%s %s", msg, sl.Theme.Upstream.Sprint(upstream)), args...)
}

func (sl *PrettyStyledLogger) InfoWithVirtualModel(msg string, virtualModel string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, sl.Theme.VirtualModel.Sprint(virtualModel)), args...)
}

func (sl *PrettyStyledLogger) WarnWithVirtualModel(msg string, virtualModel string, args ...any) {
	sl.logger.Warn(fmt.Sprintf("%s %s", msg, sl.Theme.VirtualModel.Sprint(virtualModel)), args...)
}

func (sl *PrettyStyledLogger) InfoFallbackAdvance(virtualModel, from, to, reason string, args ...any) {
	styledMsg := fmt.Sprintf("Fallback %s: %s %s %s %s",
		sl.Theme.VirtualModel.Sprint(virtualModel),
		sl.Theme.Entry.Sprint(from),
		sl.Theme.Muted.Sprint("->"),
		sl.Theme.Entry.Sprint(to),
		sl.Theme.Reason.Sprint("(", reason, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *PrettyStyledLogger) InfoWithContext(msg string, subject string, ctx LogContext) {
	sl.logWithContext(slog.LevelInfo, msg, subject, ctx)
}

func (sl *PrettyStyledLogger) WarnWithContext(msg string, subject string, ctx LogContext) {
	sl.logWithContext(slog.LevelWarn, msg, subject, ctx)
}

// logWithContext prints a short coloured line to the terminal and leaves the
// detailed record for the log file
func (sl *PrettyStyledLogger) logWithContext(level slog.Level, msg string, subject string, ctx LogContext) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.Theme.Upstream.Sprint(subject))
	sl.logger.Log(context.Background(), level, styledMsg, ctx.UserArgs...)
	logDetailed(sl.logger, level, msg, subject, ctx)
}

func (sl *PrettyStyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

func (sl *PrettyStyledLogger) With(args ...any) StyledLogger {
	return &PrettyStyledLogger{
		logger: sl.logger.With(args...),
		Theme:  sl.Theme,
	}
}

func (sl *PrettyStyledLogger) WithRequestID(requestID string) StyledLogger {
	return sl.With("request_id", requestID)
}
