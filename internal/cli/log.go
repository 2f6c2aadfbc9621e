package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps read "15:04:05.00" and
// warnings share the near-limit color used for ports.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	styles := log.DefaultStyles()
	styles.Levels[log.WarnLevel] = styles.Levels[log.WarnLevel].Foreground(colorOrange)
	styles.Keys["controller"] = lipgloss.NewStyle().Foreground(colorCyan)
	l.SetStyles(styles)
	return l
}

// progress times a command and its stages.
type progress struct {
	logger *log.Logger
	start  time.Time
	last   time.Time
}

func newProgress(l *log.Logger) *progress {
	now := time.Now()
	return &progress{logger: l, start: now, last: now}
}

// stage logs at debug level how long the step since the previous stage took.
func (p *progress) stage(name string) {
	now := time.Now()
	p.logger.Debug("stage done", "stage", name, "took", now.Sub(p.last).Round(time.Millisecond))
	p.last = now
}

// done logs msg with keyvals and the total elapsed time, e.g.
// "imported controllers=3 receivers=12 elapsed=41ms".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
