package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daybook-bot/daybook/pkg/analysis"
	"github.com/daybook-bot/daybook/pkg/bio"
	"github.com/daybook-bot/daybook/pkg/config"
	"github.com/daybook-bot/daybook/pkg/diary"
	"github.com/daybook-bot/daybook/pkg/logging"
	"github.com/daybook-bot/daybook/pkg/model"
	"github.com/daybook-bot/daybook/pkg/paths"
	"github.com/daybook-bot/daybook/pkg/session"
	"github.com/daybook-bot/daybook/pkg/speech"
	"github.com/daybook-bot/daybook/pkg/storage"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	dataDir := flag.String("data", "", "override the data directory")
	metricsAddr := flag.String("metrics", "", "address to expose /metrics on (e.g. :9090); disabled when empty")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("daybook %s (%s, built %s)\n", version, commit, buildDate)
		return
	}

	if err := run(*configPath, *dataDir, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "daybook: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dataDir, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tree := paths.NewTree(cfg.Storage.DataDir)
	if err := tree.Ensure(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(tree.LogsDir())
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.SetMinLevel(logging.Level(cfg.Logging.Level))

	client := model.NewClient(cfg.Provider.APIKey, cfg.Provider.BaseURL)
	client.SetTimeout(cfg.Provider.Timeout)
	coach := analysis.NewCoach(client, cfg.Provider.Model, logger)

	bios := bio.NewStore(tree, logger)
	if err := bios.EnsureDefault(); err != nil {
		logger.Warn(logging.CategoryBio, "default_bio_seed_failed", err.Error(), nil)
	}

	index, err := storage.OpenIndex(tree.IndexFile())
	if err != nil {
		return err
	}
	defer index.Close()

	var speaker session.Speaker
	if cfg.Speech.Enabled {
		speaker = speech.NewSynthesizer(cfg.Speech.Language, logger)
	}

	outbox := newConsoleOutbox(os.Stdout)
	manager := session.NewManager(session.Deps{
		Auth:         cfg,
		Analyst:      coach,
		Bios:         bios,
		Speaker:      speaker,
		Entries:      diary.NewStore(tree),
		Index:        index,
		Outbox:       outbox,
		Tree:         tree,
		Logger:       logger,
		ModelTimeout: cfg.Provider.Timeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr, logger)
	}

	userID, firstName := localIdentity(cfg)
	logger.Info(logging.CategorySession, "console_started", "", map[string]any{
		"user_id": userID,
		"data":    cfg.Storage.DataDir,
	})
	return runConsole(ctx, newRouter(manager, outbox), userID, firstName, os.Stdin, os.Stdout)
}

// startMetricsServer exposes the prometheus registry for scraping. It is
// best effort: a bind failure is logged and the bot keeps running.
func startMetricsServer(ctx context.Context, addr string, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn(logging.CategorySession, "metrics_server_failed", err.Error(), map[string]any{"addr": addr})
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// localIdentity resolves the console user: environment first, then the
// first allowed ID from config, then a local fallback.
func localIdentity(cfg *config.Config) (userID, firstName string) {
	userID = os.Getenv("DAYBOOK_USER_ID")
	if userID == "" && len(cfg.Access.AllowedUserIDs) > 0 {
		userID = cfg.Access.AllowedUserIDs[0]
	}
	if userID == "" {
		userID = "local"
	}
	firstName = os.Getenv("DAYBOOK_USER_NAME")
	if firstName == "" {
		firstName = "there"
	}
	return userID, firstName
}
