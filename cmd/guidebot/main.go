package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/realcamp/guidebot/internal/app"
	"github.com/realcamp/guidebot/internal/config"
	"github.com/realcamp/guidebot/internal/storage"
	"github.com/realcamp/guidebot/internal/web"
)

var Version = "dev"

var buildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "guidebot",
		Name:      "build_info",
		Help:      "Build information with version and Go runtime details",
	},
	[]string{"version", "go_version"},
)

func init() {
	buildInfo.WithLabelValues(Version, runtime.Version()).Set(1)
}

func runHealthcheck(configPath string) int {
	// Config errors are tolerated here: the app may be running with env
	// vars only, in which case the default port still applies.
	cfg, err := config.Load(configPath)
	port := "8000"
	if err == nil && cfg.Server.ListenPort != "" {
		port = cfg.Server.ListenPort
	} else if envPort := os.Getenv("GUIDEBOT_SERVER_PORT"); envPort != "" {
		port = envPort
	}

	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Healthcheck returned status: %d\n", resp.StatusCode)
		return 1
	}
	return 0
}

func main() {
	// JSON logging early, before config load. Reconfigured with the
	// correct level once config is available.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found or failed to load, relying on environment variables")
	}

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	healthcheck := flag.Bool("healthcheck", false, "run healthcheck and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("guidebot", Version)
		os.Exit(0)
	}

	if *healthcheck {
		os.Exit(runHealthcheck(*configPath))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		slog.Warn("unknown log level, defaulting to info", "level", cfg.Log.Level)
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "ru"
		logger.Warn("Language not specified in config, defaulting to 'ru'")
	}

	store, err := storage.NewSQLiteStore(logger, cfg.Database.Path, cfg.Bot.HistoryLimit)
	if err != nil {
		logger.Error("failed to create storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	if err := store.LoadAll(); err != nil {
		logger.Error("failed to load stored contexts", "error", err)
		os.Exit(1)
	}
	logger.Info("Database initialized successfully.")

	services, err := app.SetupServices(logger, cfg, store)
	if err != nil {
		logger.Error("failed to set up services", "error", err)
		os.Exit(1)
	}
	guide := services.Catalog.Guide()
	logger.Info("Badge catalog loaded",
		"categories", guide.TotalCategories,
		"badges", guide.TotalBadges,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	webServer, err := web.NewServer(logger, cfg, services.Catalog, store, services.Orchestrator, services.Translator)
	if err != nil {
		logger.Error("failed to create web server", "error", err)
		os.Exit(1)
	}

	srvDone := make(chan struct{})
	go func() {
		defer close(srvDone)
		if err := webServer.Start(ctx); err != nil {
			logger.Error("web server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("Starting guidebot", "version", Version, "port", cfg.Server.ListenPort)

	<-ctx.Done()
	logger.Info("Shutting down...")

	<-srvDone
	logger.Info("Web server stopped")

	if err := store.Checkpoint(); err != nil {
		logger.Warn("failed to checkpoint database", "error", err)
	}
}
