package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/listingsync/config"
	"sjsage522/listingsync/internal/crawler"
	"sjsage522/listingsync/internal/resolve"
	"sjsage522/listingsync/logger"
	"sjsage522/listingsync/services/cache"
	"sjsage522/listingsync/services/mirror"
	"sjsage522/listingsync/services/publisher"
	"sjsage522/listingsync/services/store"
	"sjsage522/listingsync/services/translate"
	"sjsage522/listingsync/services/worker"

	"github.com/joho/godotenv"
)

// translationTTL is how long a translated title stays in memcache
const translationTTL = 30 * 24 * time.Hour

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("listings_file", cfg.ListingsFile).
		Int("fetch_limit", cfg.FetchLimit).
		Int("retention_days", cfg.RetentionDays).
		Str("target_language", cfg.TargetLanguage).
		Msg("Starting listing sync")

	// Interrupts only cut network calls short; the run still reaches the save
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	w := buildWorker(cfg, services)

	summary, err := w.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", summary.RunID).Msg("Sync run failed")
	}

	log.Info().
		Str("run_id", summary.RunID).
		Int("fetched", summary.Fetched).
		Int("merged", summary.Inserted+summary.Updated).
		Int("expired", summary.Expired).
		Int("total", summary.Total).
		Msg("Done")
}

// Services holds all the initialized services. Any of them may be nil.
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Mirror    mirror.Mirror
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Mirror != nil {
		s.Mirror.Close()
	}
}

// initializeServices connects the optional collaborators. A service that is
// not configured or not reachable is left nil and the run goes on without it.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr, "listingsync:")
		logger.Info("Using Memcache at %s", cfg.MemcacheAddr)
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Publishing new listings to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	if cfg.DatabaseURL != "" {
		m, err := mirror.NewPostgresMirror(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.LogError("mirror", err, "Postgres mirror disabled")
		} else {
			services.Mirror = m
		}
	}

	return services
}

// buildWorker wires the crawlers, resolvers and store into a worker
func buildWorker(cfg *config.Config, services *Services) *worker.Worker {
	crawlers := crawler.CreateCrawlers(cfg, services.Cache)

	locations := resolve.NewLocationClassifier(cfg.Municipalities, cfg.DefaultLocation)
	enricher := worker.NewEnricher(
		locations,
		resolve.NewImageResolver(crawler.ImagePolicies(cfg)),
		buildTranslator(cfg, services.Cache),
		cfg.TargetLanguage,
	)

	opts := make([]worker.Option, 0, 2)
	if services.Publisher != nil {
		opts = append(opts, worker.WithPublisher(services.Publisher))
	}
	if services.Mirror != nil {
		opts = append(opts, worker.WithMirror(services.Mirror))
	}

	return worker.NewWorker(
		crawlers,
		store.NewFileStore(cfg.ListingsFile, store.WithLocationClassifier(locations)),
		enricher,
		cfg.FetchLimit,
		cfg.RetentionDays,
		opts...,
	)
}

func buildTranslator(cfg *config.Config, cacheSvc cache.CacheService) translate.Translator {
	if cfg.TargetLanguage == "" {
		return translate.NoopTranslator{}
	}

	var tr translate.Translator = translate.NewGoogleTranslator(cfg.TranslateURL, cfg.TranslateTimeout)
	if cacheSvc != nil {
		tr = translate.NewCachedTranslator(tr, cacheSvc, translationTTL)
	}
	return tr
}
