/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the global logger for the VibeCheck web gateway, picks console or JSON output
depending on the environment, and exposes small helpers for the Info, Warn, Error and Fatal
levels as well as component-scoped child loggers. Helper fields are scrubbed before they are
written: credentials are redacted and user subjects are masked.
*/
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger initializes the global zerolog instance.
// Development: Debug level, human-readable console output on stderr.
// Production: Info level, JSON on stdout.
// All entries carry a Unix timestamp and caller information.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    false,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// SetOutput redirects the global logger, keeping its level. Tests use it to capture entries.
func SetOutput(w io.Writer) {
	log.Logger = log.Logger.Output(w)
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// Field values under these keys never reach the log output.
var redactedKeys = map[string]struct{}{
	"access_token":  {},
	"authorization": {},
	"password":      {},
	"token":         {},
}

// Field values under these keys name a user and are masked.
var subjectKeys = map[string]struct{}{
	"email":   {},
	"subject": {},
}

// MaskSubject keeps the first character and the domain of an email subject, e.g.
// "a***@example.com". Non-email subjects keep only their first character.
func MaskSubject(subject string) string {
	if subject == "" {
		return ""
	}
	local, domain, found := strings.Cut(subject, "@")
	masked := local[:1] + "***"
	if found {
		masked += "@" + domain
	}
	return masked
}

// sanitizeFields validates that fields holds key-value pairs and scrubs credentials and user
// identifiers. An odd count is reported and the fields are dropped so zerolog does not panic.
func sanitizeFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("logx call (%s) received odd number of fields. Fields ignored.", level)
		return nil
	}

	clean := make([]any, len(fields))
	copy(clean, fields)
	for i := 0; i < len(clean); i += 2 {
		key, ok := clean[i].(string)
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if _, ok := redactedKeys[key]; ok {
			clean[i+1] = "[redacted]"
			continue
		}
		if _, ok := subjectKeys[key]; ok {
			if v, ok := clean[i+1].(string); ok {
				clean[i+1] = MaskSubject(v)
			}
		}
	}
	return clean
}

// emit writes one entry. skip accounts for the exported helper that called it.
func emit(e *zerolog.Event, level string, err error, msg string, fields []any) {
	if err != nil {
		e = e.Err(err)
	}
	e.Fields(sanitizeFields(level, fields)).
		CallerSkipFrame(2).
		Msg(msg)
}

// Info records a message at the Info level with optional key-value fields.
func Info(msg string, fields ...any) {
	emit(Logger().Info(), "Info", nil, msg, fields)
}

// Warn records a message at the Warn level with optional key-value fields.
func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), "Warn", nil, msg, fields)
}

// Error records err and a message at the Error level with optional key-value fields.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error(), "Error", err, msg, fields)
}

// Fatal records err at the Fatal level and terminates the process with os.Exit(1).
func Fatal(err error, msg string, fields ...any) {
	emit(Logger().Fatal(), "Fatal", err, msg, fields)
}
