package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	stdio   bool
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStdio serves MCP over stdin/stdout instead of starting the HTTP server.
func WithStdio(enabled bool) Option {
	return func(a *application) {
		a.stdio = enabled
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
