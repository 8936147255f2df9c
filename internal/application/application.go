package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/lintconf/internal/api"
	"github.com/eugenenazirov/lintconf/internal/config"
	"github.com/eugenenazirov/lintconf/internal/resolver"
	"github.com/eugenenazirov/lintconf/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	resolver resolver.Resolver
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	loader := NewPresetLoader(cfg.PresetDir, store)

	if err := RegisterPresets(cfg, loader, store, logger); err != nil {
		return nil, fmt.Errorf("failed to preload presets: %w", err)
	}

	res := resolver.New(loader)
	handler := api.NewHandler(res, store, api.WithLogger(logger))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	server := NewServer(cfg, BuildRootHandler(apiRouter))

	return &App{
		storage:  store,
		resolver: res,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   server,
	}, nil
}

// NewPresetLoader returns the loader used for preset references: presets
// registered by name first, then documents on disk relative to dir.
func NewPresetLoader(dir string, named storage.Storage) resolver.PresetLoader {
	return storage.Chain{named, storage.NewFileLoader(dir, storage.WithFallback(named))}
}

// RegisterPresets loads every preset named in cfg through loader and stores
// it under its name.
func RegisterPresets(cfg config.Config, loader resolver.PresetLoader, store storage.Storage, logger *zap.Logger) error {
	for _, name := range cfg.PresetNames() {
		path := cfg.Presets[name]
		preset, err := loader.LoadPreset(path)
		if err != nil {
			return fmt.Errorf("preset %q from %s: %w", name, path, err)
		}
		if err := store.SetPreset(name, preset); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
		logger.Info("preset registered",
			zap.String("preset", name),
			zap.String("path", path),
			zap.Int("rules", len(preset.Rules)),
		)
	}
	return nil
}

// BuildRootHandler constructs the root HTTP handler that routes API requests
// and describes the available endpoints at the root path.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": "lintconf",
			"endpoints": []string{
				"GET /api/health",
				"POST /api/resolve",
				"GET /api/presets",
				"GET /api/presets/{name}",
				"PUT /api/presets/{name}",
			},
		})
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.Strings("presets", a.storage.Presets()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
