package logger

import (
	"log/slog"

	"github.com/thushan/switchback/theme"
)

// StyledLogger is the logger handed to every component. The pretty variant colours
// the interesting parts of a message for the terminal, the plain variant is used
// for tests and non interactive output.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithUpstream(msg string, upstream string, args ...any)
	WarnWithUpstream(msg string, upstream string, args ...any)
	InfoWithVirtualModel(msg string, virtualModel string, args ...any)
	WarnWithVirtualModel(msg string, virtualModel string, args ...any)
	InfoFallbackAdvance(virtualModel, from, to, reason string, args ...any)

	InfoWithContext(msg string, subject string, ctx LogContext)
	WarnWithContext(msg string, subject string, ctx LogContext)

	GetUnderlying() *slog.Logger
	With(args ...any) StyledLogger
	WithRequestID(requestID string) StyledLogger
}

// LogContext separates what the terminal shows from what only goes to the log file
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

// NewWithTheme builds the slog logger and wraps it with the styled logger that suits
// the terminal
func NewWithTheme(cfg *Config) (*slog.Logger, StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var styled StyledLogger
	if useColours() {
		styled = NewPrettyStyledLogger(logger, theme.GetTheme(cfg.Theme))
	} else {
		styled = NewPlainStyledLogger(logger)
	}

	return logger, styled, cleanup, nil
}
