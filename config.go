package storypub

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eringen/storypub/content"
	"github.com/eringen/storypub/publish"
)

// SiteConfig holds all configuration for a storypub site. The env tags are
// read by cleanenv in the command.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" env-default:"Stories"`  // Site name
	URL         string `env:"SITE_URL"`                         // Canonical URL; feed and sitemap are written only when set
	Description string `env:"SITE_DESCRIPTION"`                 // Listing and feed description
	Author      string `env:"SITE_AUTHOR"`                      // Author name for the footer and JSON-LD
	PageExt     string `env:"PAGE_EXT" env-default:"html"`      // Extension of generated pages

	Addr       string `env:"ADDR" env-default:":4000"`                          // Listen address
	IndexPath  string `env:"INDEX_PATH" env-default:"data/stories.json"`        // Metadata index document
	StorageURL string `env:"STORAGE_URL" env-default:"file://data/content"`    // Blob backend, file:// or s3://
	OutputDir  string `env:"OUTPUT_DIR" env-default:"public"`                   // Published site

	AdminPassword string   `env:"ADMIN_PASSWORD"`                 // Enables the admin session when set
	SessionSecret string   `env:"SESSION_SECRET"`                 // Required with AdminPassword
	CookieSecure  bool     `env:"COOKIE_SECURE"`                  // Set true for HTTPS
	CORSOrigins   []string `env:"CORS_ORIGINS" env-separator:","` // Allowed API origins (default any)

	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"text"`
	LogFile      string `env:"LOG_FILE"`
	LogMaxSizeMB int    `env:"LOG_MAX_SIZE_MB" env-default:"10"`
	LogMaxFiles  int    `env:"LOG_MAX_FILES" env-default:"5"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Stories"
	}
	c.PageExt = strings.TrimPrefix(c.PageExt, ".")
	if c.PageExt == "" {
		c.PageExt = "html"
	}
	if c.Addr == "" {
		c.Addr = ":4000"
	}
	if c.IndexPath == "" {
		c.IndexPath = "data/stories.json"
	}
	if c.StorageURL == "" {
		c.StorageURL = "file://data/content"
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// AuthEnabled reports whether write endpoints require an admin session.
func (c SiteConfig) AuthEnabled() bool {
	return c.AdminPassword != ""
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithBackend stores blobs in backend instead of opening StorageURL.
func WithBackend(b content.Backend) Option {
	return func(a *App) {
		a.backend = b
	}
}

// WithRenderer replaces the templ page renderer.
func WithRenderer(r publish.Renderer) Option {
	return func(a *App) {
		a.renderer = r
	}
}

// WithStoreOptions passes options through to the Store.
func WithStoreOptions(opts ...StoreOption) Option {
	return func(a *App) {
		a.storeOpts = append(a.storeOpts, opts...)
	}
}
