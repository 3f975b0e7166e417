package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/vaultmcp/internal/fileservice"
	"github.com/starford/vaultmcp/internal/index"
	"github.com/starford/vaultmcp/internal/search"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Vault modes.
const (
	VaultModeREST = "rest"
	VaultModeFS   = "fs"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Index  IndexConfig       `yaml:"index"`
	Search SearchConfig      `yaml:"search"`
	Trash  TrashConfig       `yaml:"trash"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig selects and configures the vault backend.
//
// Mode "rest" talks to the Obsidian Local REST API at BaseURL; mode "fs"
// serves a local directory at Path, which is handy for development.
type VaultConfig struct {
	Mode        string        `yaml:"mode"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	InsecureTLS bool          `yaml:"insecure_tls"`
	Path        string        `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = VaultModeREST
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(VaultModeREST, VaultModeFS)),
		validation.Field(&c.BaseURL,
			validation.When(c.Mode == VaultModeREST, validation.Required, is.URL)),
		validation.Field(&c.APIKey, validation.When(c.Mode == VaultModeREST, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Path, validation.When(c.Mode == VaultModeFS, validation.Required)),
	)
}

// IndexConfig controls the filename index cache.
type IndexConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// Watch invalidates the cache on local file changes; fs mode only.
	Watch bool `yaml:"watch"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	)
}

// SearchConfig holds content and filename search defaults.
type SearchConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	// EventThrottle bounds how often index.invalidated is streamed.
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Include, validation.Each(validation.Required)),
		validation.Field(&c.Exclude, validation.Each(validation.Required)),
	)
}

// TrashConfig holds soft-delete configuration.
type TrashConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Mode:    VaultModeREST,
			BaseURL: "https://127.0.0.1:27124",
			Timeout: 10 * time.Second,
			Path:    "./vault",
		},
		Index: IndexConfig{
			CacheTTL: index.DefaultTTL,
		},
		Search: SearchConfig{
			Include:       append([]string(nil), search.DefaultInclude...),
			EventThrottle: 2 * time.Second,
		},
		Trash: TrashConfig{
			Dir: fileservice.DefaultTrashDir,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
