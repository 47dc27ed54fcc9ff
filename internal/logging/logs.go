package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Printf-style helpers over the global logger. Call sites import this
// package as logs and put key=value pairs in the message.

func Tracef(format string, args ...any) { log.Logger.Trace().Msgf(format, args...) }
func Debugf(format string, args ...any) { log.Logger.Debug().Msgf(format, args...) }
func Infof(format string, args ...any) { log.Logger.Info().Msgf(format, args...) }
func Warnf(format string, args ...any) { log.Logger.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { log.Logger.Error().Msgf(format, args...) }

// Logf writes an unleveled line that survives every level except Disabled.
func Logf(format string, args ...any) { log.Logger.Log().Msgf(format, args...) }

// Logger returns the current global logger for structured call sites.
func Logger() zerolog.Logger {
	return log.Logger
}

// Enabled reports whether lvl passes the global level.
func Enabled(lvl zerolog.Level) bool {
	return lvl >= zerolog.GlobalLevel() && lvl != zerolog.Disabled
}
