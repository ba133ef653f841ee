// go_promo is a YouTube promo code discovery MCP server.
//
// Searches YouTube for recent videos that mention affiliate domains, asks an LLM
// for the sponsor, promo code and discount in each description, and keeps a
// ledger of active promos and creator fitness scores.
//
// Tools: promo_scan, promo_extract, active_promos, top_creators, promo_sweep.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"

	"github.com/anatolykoptev/go_promo/internal/engine"
	"github.com/anatolykoptev/go_promo/internal/engine/ledger"
	"github.com/anatolykoptev/go_promo/internal/engine/promo"
	"github.com/anatolykoptev/go_promo/internal/engine/scan"
	"github.com/anatolykoptev/go_promo/internal/engine/sources"
	"github.com/anatolykoptev/go_promo/internal/promoserver"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	_ = godotenv.Load()
	initEngine()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := engine.ConnectRedis(ctx, env.Str("REDIS_URL", ""))
	engine.InitCache(rdb, env.Duration("CACHE_TTL", 6*time.Hour), engine.Cfg.CacheMaxEntries, engine.Cfg.CacheCleanupInterval)

	l, closeLedger, err := initLedger(ctx)
	if err != nil {
		slog.Error("ledger init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeLedger()
	go l.RunSweeper(ctx, engine.Cfg.SweepInterval)

	extractor := promo.NewExtractor(engine.NewLLMCompleter(engine.Cfg.LLMClient, engine.Cfg.LLMMaxTokens), engine.Cfg.DescriptionMax)
	fetcher := engine.NewFetcher(engine.Cfg)
	scanner := scan.New(
		sources.NewYouTube(fetcher, sources.WithPlayerFallback(sources.NewPlayerAPI(fetcher.APIClient()))),
		extractor,
		l,
		newClaims(rdb),
		engine.Cfg.Workers,
	)

	slog.Info("starting go_promo",
		slog.String("port", mcpPort),
		slog.Int("domains", len(engine.Cfg.Domains)),
		slog.String("recency", engine.Cfg.Recency),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_promo",
		Version: version,
	}, nil)

	promoserver.RegisterTools(server, promoserver.Services{
		Scanner:   scanner,
		Extractor: extractor,
		Ledger:    l,
	})
	slog.Info("tools registered", slog.Int("count", 5))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_promo",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", engine.DefaultLLMMaxTokens),
		Domains:              env.List("PROMO_DOMAINS", ""),
		Recency:              env.Str("PROMO_RECENCY", ""),
		PromoTTL:             env.Duration("PROMO_TTL", engine.DefaultPromoTTL),
		FitnessIncrease:      env.Float("FITNESS_INCREMENT", engine.DefaultFitnessIncrease),
		DescriptionMax:       env.Int("DESCRIPTION_MAX_CHARS", engine.DefaultDescriptionMax),
		Workers:              env.Int("SCAN_WORKERS", engine.DefaultWorkers),
		FetchRPS:             env.Float("FETCH_RPS", 2),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		SweepInterval:        env.Duration("SWEEP_INTERVAL", time.Hour),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		SQLitePath:           env.Str("SQLITE_PATH", defaultSQLitePath()),
		NatsURL:              env.Str("NATS_URL", ""),
		MeiliHost:            env.Str("MEILI_HOST", ""),
		MeiliKey:             env.Str("MEILI_KEY", ""),
		MeiliIndex:           env.Str("MEILI_INDEX", "promos"),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	// Seeds file; PROMO_DOMAINS / PROMO_RECENCY take precedence.
	if path := env.Str("PROMO_SEEDS_FILE", ""); path != "" {
		seeds, err := engine.LoadSeeds(path)
		if err != nil {
			slog.Warn("seeds file ignored", slog.Any("error", err))
		} else {
			if len(c.Domains) == 0 {
				c.Domains = seeds.Domains
			}
			if c.Recency == "" {
				c.Recency = seeds.Recency
			}
			slog.Info("seeds loaded", slog.String("path", path), slog.Int("domains", len(seeds.Domains)))
		}
	}
	c.Domains = engine.NormalizeDomains(c.Domains)

	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	} else {
		slog.Warn("LLM_API_KEY not set, promo extraction disabled")
	}

	engine.Init(c)
}

// initLedger opens Postgres when DATABASE_URL is set and SQLite otherwise,
// then attaches the optional NATS and Meilisearch observers.
func initLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	var (
		store ledger.Store
		err   error
	)
	if engine.Cfg.DatabaseURL != "" {
		store, err = ledger.ConnectPostgres(ctx, engine.Cfg.DatabaseURL)
	} else {
		store, err = ledger.OpenSQLite(ctx, engine.Cfg.SQLitePath)
	}
	if err != nil {
		return nil, nil, err
	}

	opts := []ledger.Option{
		ledger.WithTTL(engine.Cfg.PromoTTL),
		ledger.WithIncrement(engine.Cfg.FitnessIncrease),
	}

	closeEvents := func() {}
	events, closeFn, err := ledger.ConnectEvents(engine.Cfg.NatsURL)
	if err != nil {
		slog.Warn("nats init failed, events disabled", slog.Any("error", err))
	} else if events != nil {
		opts = append(opts, ledger.WithObserver(events))
		closeEvents = closeFn
	}

	if engine.Cfg.MeiliHost != "" {
		opts = append(opts, ledger.WithObserver(ledger.NewPromoIndex(engine.Cfg.MeiliHost, engine.Cfg.MeiliKey, engine.Cfg.MeiliIndex)))
		slog.Info("meilisearch index attached", slog.String("index", engine.Cfg.MeiliIndex))
	}

	l := ledger.New(store, opts...)
	return l, func() {
		closeEvents()
		if err := l.Close(); err != nil {
			slog.Warn("ledger close failed", slog.Any("error", err))
		}
	}, nil
}

// newClaims returns a Redis-backed claimer, or an in-memory one when Redis is off.
func newClaims(rdb *redis.Client) *engine.Deduplicator {
	return engine.NewDeduplicator(rdb, engine.Cfg.PromoTTL)
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".go_promo", "ledger.db")
	}
	return filepath.Join(home, ".go_promo", "ledger.db")
}
