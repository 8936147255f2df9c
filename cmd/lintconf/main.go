package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/lintconf/internal/application"
	"github.com/eugenenazirov/lintconf/internal/config"
	"github.com/eugenenazirov/lintconf/internal/discovery"
	"github.com/eugenenazirov/lintconf/internal/logging"
	"github.com/eugenenazirov/lintconf/internal/resolver"
	"github.com/eugenenazirov/lintconf/internal/storage"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("lintconf", "Lint configuration resolver - merges rule presets with local overrides")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	presetDir := kingpinApp.Flag("preset-dir", "Directory relative preset references are resolved against").String()
	presetsStr := kingpinApp.Flag("presets", "Comma-separated name=path presets to register at start-up").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	serveCmd := kingpinApp.Command("serve", "Serve the resolver HTTP API").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	printCmd := kingpinApp.Command("print", "Print the effective configuration for a directory")
	printDir := printCmd.Arg("dir", "Directory whose nearest configuration is resolved").Default(".").ExistingDir()
	printFormat := printCmd.Flag("format", "Output format").Default("yaml").Enum("yaml", "json")

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *presetDir != "" {
		overrides.PresetDir = presetDir
	}

	if *presetsStr != "" {
		overrides.PresetsStr = presetsStr
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *port != "" {
		overrides.Port = port
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case printCmd.FullCommand():
		if err := printConfig(os.Stdout, cfg, *printDir, *printFormat, logger); err != nil {
			logger.Fatal("failed to resolve configuration", zap.String("dir", *printDir), zap.Error(err))
		}
	default:
		serve(cfg, logger)
	}
}

func serve(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// printConfig resolves the configuration cascade applying to dir and writes
// the effective configuration to out.
func printConfig(out io.Writer, cfg config.Config, dir, format string, logger *zap.Logger) error {
	named := storage.NewMemoryStorage()
	if err := application.RegisterPresets(cfg, application.NewPresetLoader(cfg.PresetDir, named), named, logger); err != nil {
		return err
	}

	effective, sources, err := discovery.Discover(dir, func(docDir string) resolver.PresetLoader {
		return application.NewPresetLoader(docDir, named)
	})
	if err != nil {
		return err
	}
	for _, src := range sources {
		logger.Debug("configuration source", zap.String("path", src.Path))
	}

	var data []byte
	switch format {
	case "json":
		data, err = effective.Encode()
	default:
		data, err = effective.EncodeYAML()
	}
	if err != nil {
		return err
	}

	_, err = out.Write(data)
	return err
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
