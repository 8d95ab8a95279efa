package internal

import (
	"io"

	"github.com/starford/daybook/internal/clock"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	clock     clock.Clock
	sync      bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects structured logs. Defaults to stdout; the MCP stdio
// transport and the CLI commands log to stderr instead.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithClock overrides the source of "today".
func WithClock(c clock.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}

// WithoutSync skips the catalog sync when opening the journal.
func WithoutSync() Option {
	return func(a *application) {
		a.sync = false
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{sync: true}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
