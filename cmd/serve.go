package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/ai"
	"github.com/resumecheck/resumecheck/internal/ai/gemini"
	"github.com/resumecheck/resumecheck/internal/httpapi"
	"github.com/resumecheck/resumecheck/internal/logger"
	"github.com/resumecheck/resumecheck/internal/pipeline"
	"github.com/resumecheck/resumecheck/internal/secrets"
	"github.com/resumecheck/resumecheck/internal/store"
	"github.com/resumecheck/resumecheck/internal/worker"
)

const defaultAddr = ":8080"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background worker pool",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logg.Fatal("getting a config", zap.Error(err))
	}

	logg.Info("starting resumecheck", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logg.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logg.Fatal("config is required")
	}

	jobStore, err := openStore(ctx, config.Store, logg)
	if err != nil {
		logg.Fatal("opening the job store", zap.Error(err))
	}
	defer jobStore.Close()

	pipe, err := buildPipeline(ctx, config.AI, logg)
	if err != nil {
		logg.Fatal("building the evaluation pipeline", zap.Error(err))
	}

	pool := worker.NewPool(jobStore, pipe, logg, workerConfig(config.Worker))
	go func() {
		if err := pool.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error("worker pool exited", zap.Error(err))
		}
	}()

	addr := defaultAddr
	if config.Server != nil && config.Server.Addr != "" {
		addr = config.Server.Addr
	}

	api := httpapi.NewServer(jobStore, logg)
	go func() {
		if err := api.Start(addr); err != nil && ctx.Err() == nil {
			logg.Fatal("http api failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logg.Warn("http api shutdown", zap.Error(err))
	}

	logg.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *StoreConfig, logg *zap.Logger) (store.Store, error) {
	driver := "postgres"
	if cfg != nil && cfg.Driver != "" {
		driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	}

	switch driver {
	case "memory":
		logg.Warn("using the in-memory store, jobs will not survive a restart")
		return store.NewMemory(), nil
	case "postgres":
		var dsn, dsnFile string
		if cfg != nil {
			dsn = cfg.DSN
			dsnFile = cfg.DSNFile
		}
		if dsn == "" {
			dsn = viper.GetString("store.dsn")
		}

		resolved, err := secrets.Load("postgres dsn", dsn, dsnFile)
		if err != nil {
			return nil, fmt.Errorf("%w (set store.dsn, store.dsn-file or RESUMECHECK_DATABASE_DSN)", err)
		}

		return store.OpenPostgres(ctx, resolved, logg)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func buildPipeline(ctx context.Context, cfg *AIConfig, logg *zap.Logger) (*pipeline.Pipeline, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load("gemini api key", cfg.Gemini.APIKey, cfg.Gemini.APIKeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, logg)
	if err != nil {
		return nil, err
	}

	leafLogger := logger.WithCommonFields(logg, "gemini", generator.Model())

	maxLogLen := cfg.Gemini.MaxLogLength

	var (
		summarizer ai.Summarizer = gemini.NewSummarizer(generator, leafLogger, maxLogLen)
		extractor  ai.Extractor  = gemini.NewExtractor(generator, leafLogger, maxLogLen)
		scorer     ai.Scorer     = gemini.NewScorer(generator, leafLogger, maxLogLen)
	)

	return pipeline.New(summarizer, extractor, scorer, logg), nil
}

func workerConfig(cfg *WorkerConfig) worker.Config {
	if cfg == nil {
		return worker.Config{}
	}

	return worker.Config{
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		Concurrency:  cfg.Concurrency,
	}
}
