// Package cli implements the archviz command-line interface.
//
// Commands load diagram documents, render them through [render.Renderer],
// and report the written files. The CLI is built on cobra and logs with
// charmbracelet/log.
//
// # Commands
//
//   - render: render a TOML or YAML document to image files
//   - watch: re-render a document whenever it changes
//   - serve: render documents posted over HTTP
//   - icons: list or browse the icon catalog
//   - cache: inspect and clear the artifact cache
//
// # Logging
//
// --verbose (-v) switches to debug level. The shared logger travels in the
// command context; see loggerFromContext.
//
// [render.Renderer]: github.com/matzehuels/archviz/pkg/render.Renderer
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger writing to w with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long an operation took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Rendered web (412ms)".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg+" ("+p.elapsed().String()+")", keyvals...)
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
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
