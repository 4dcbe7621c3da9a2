// Package logx provides the structured logger used throughout the
// recipe build pipeline. It wraps pterm's logger the same way the
// rest of this codebase's ancestry does: leveled output, colorized
// structured key/value fields, no timestamps suppressed.
package logx

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

// keyStyles colors the field names this core actually emits. Unknown
// keys fall back to the default style.
var keyStyles = pterm.LoggerArgumentStyles{
	"recipe":   pterm.NewStyle(pterm.FgGreen),
	"arch":     pterm.NewStyle(pterm.FgGreen),
	"package":  pterm.NewStyle(pterm.FgGreen),
	"phase":    pterm.NewStyle(pterm.FgCyan),
	"source":   pterm.NewStyle(pterm.FgLightBlue),
	"duration": pterm.NewStyle(pterm.FgBlue),
	"path":     pterm.NewStyle(pterm.FgLightBlue),
}

// Logger wraps *pterm.Logger with fixed configuration for this repo.
type Logger struct {
	*pterm.Logger
}

// New builds a Logger writing to w at the given level.
func New(w io.Writer, level pterm.LogLevel) *Logger {
	l := pterm.DefaultLogger.
		WithLevel(level).
		WithWriter(w).
		WithCaller(false).
		WithTime(true).
		WithKeyStyles(keyStyles)

	return &Logger{Logger: l}
}

// Default is the package-level logger, writing to stderr at info
// level, used by components that do not carry their own Logger
// reference (mirroring the ancestor codebase's package-level
// Logger convenience var).
var Default = New(os.Stderr, pterm.LogLevelInfo)

func toArgs(kv ...any) []pterm.LoggerArgument {
	args := make([]pterm.LoggerArgument, 0, len(kv)/2)

	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		args = append(args, pterm.LoggerArgument{Key: key, Value: kv[i+1]})
	}

	return args
}

func (l *Logger) Debug(msg string, kv ...any) { l.Logger.Debug(msg, toArgs(kv...)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.Logger.Info(msg, toArgs(kv...)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.Logger.Warn(msg, toArgs(kv...)...) }
func (l *Logger) Error(msg string, kv ...any) { l.Logger.Error(msg, toArgs(kv...)...) }
