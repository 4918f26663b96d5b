// Package storypub persists short stories and republishes them as a static
// site after every change.
//
// Story metadata lives in one JSON index, each body in its own blob. The
// Store serializes every read and mutation; after each mutation the
// publish package regenerates the site. App wires the Store into an echo
// server exposing a JSON API, a live preview and the generated site.
package storypub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eringen/storypub/content"
	"github.com/eringen/storypub/index"
	"github.com/eringen/storypub/publish"
	"github.com/eringen/storypub/views"
)

// App is the central storypub application. It wires together the store,
// publisher, handlers and middleware.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Publisher *publish.Publisher
	Log       logrus.FieldLogger

	backend      content.Backend
	renderer     publish.Renderer
	storeOpts    []StoreOption
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
}

// New creates a storypub App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Log:    logrus.StandardLogger(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the content backend and builds the store, publisher and HTTP
// routes. Start calls it when it has not been called yet.
func (a *App) Init(ctx context.Context) error {
	if a.Config.AuthEnabled() && a.Config.SessionSecret == "" {
		return fmt.Errorf("storypub: SessionSecret is required when AdminPassword is set")
	}

	if a.backend == nil {
		b, err := content.Open(ctx, a.Config.StorageURL)
		if err != nil {
			return fmt.Errorf("storypub: open content backend: %w", err)
		}
		a.backend = b
	}
	blobs := content.New(a.backend, a.Log)
	idx := index.New(a.Config.IndexPath, blobs, index.WithLogger(a.Log))

	pubOpts := []publish.Option{publish.WithLogger(a.Log)}
	if a.renderer != nil {
		pubOpts = append(pubOpts, publish.WithRenderer(a.renderer))
	}
	a.Publisher = publish.New(a.Config.OutputDir, a.site(), pubOpts...)

	storeOpts := append([]StoreOption{WithStoreLogger(a.Log)}, a.storeOpts...)
	a.Store = NewStore(idx, blobs, a.Publisher, storeOpts...)

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app if needed and serves HTTP until the server is
// shut down.
func (a *App) Start(ctx context.Context) error {
	if a.Store == nil {
		if err := a.Init(ctx); err != nil {
			return err
		}
	}
	a.Log.WithField("addr", a.Config.Addr).Info("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the HTTP server down.
func (a *App) Close(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		PageExt:     a.Config.PageExt,
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	api := e.Group("/api")
	api.GET("/stories", a.handleListStories)
	api.GET("/stories/:id", a.handleGetStory)
	api.POST("/stories", a.handleCreateStory, a.requireAdmin)
	api.PUT("/stories/:id", a.handleUpdateStory, a.requireAdmin)
	api.DELETE("/stories/:id", a.handleDeleteStory, a.requireAdmin)
	if a.Config.AuthEnabled() {
		api.POST("/session", a.handleLogin)
		api.DELETE("/session", handleLogout)
	}

	e.GET("/preview/style.css", handlePreviewStylesheet)
	e.GET("/preview/:id", a.handlePreview, a.requireAdmin)
	e.GET("/preview/:id/", a.handlePreview, a.requireAdmin)

	e.Static("/", a.Config.OutputDir)
}
