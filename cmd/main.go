package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"plutus/internal/adapters/ai"
	"plutus/internal/adapters/config"
	"plutus/internal/adapters/errors/noop"
	"plutus/internal/adapters/errors/sentry"
	"plutus/internal/adapters/marketdata"
	"plutus/internal/adapters/redis"
	"plutus/internal/advisor"
	"plutus/internal/agents"
	"plutus/internal/api"
	"plutus/internal/api/health"
	"plutus/internal/imagetask"
	"plutus/internal/metrics"
	"plutus/internal/tools"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
	"plutus/pkg/retry"
)

const version = "1.0.0"

func main() {
	// Load configuration. Missing OPENAI_API_KEY or COINMARKETCAP_API_KEY is
	// fatal here: the service cannot do anything useful without them.
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Register Prometheus collectors
	metrics.Init()

	// Optional Redis: image tasks fall back to the in-memory store without it
	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// AI providers
	chatLimiter := ai.NewTokenBucketLimiter("openai", cfg.AI.ReqPerMinute, 0)
	chatProvider := ai.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.RequestTimeout, chatLimiter)

	imageProvider, err := ai.NewOpenAIImageProvider(cfg.AI.OpenAIKey, cfg.AI.ImageModel, 0)
	if err != nil {
		log.Fatalf("Failed to init image provider: %v", err)
	}

	// Market data providers
	providers, err := initProviders(cfg, log)
	if err != nil {
		log.Fatalf("Failed to init market data providers: %v", err)
	}

	// Advisor consensus service
	adv, err := advisor.New(providers.cmc,
		[]marketdata.AnalysisProvider{providers.tradingView, providers.yahoo},
		providers.yahoo)
	if err != nil {
		log.Fatalf("Failed to init advisor: %v", err)
	}

	// Tool registry: registration order is the order tools are shown to the
	// model, so keep it stable.
	registry := tools.NewRegistry()
	if err := registerTools(registry, providers, adv, log); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}
	log.Infof("Registered %d tools: %v", registry.Len(), registry.Names())

	// Image task manager
	taskManager, err := imagetask.NewManager(initTaskStore(cfg, redisClient, log), imageProvider)
	if err != nil {
		log.Fatalf("Failed to init image task manager: %v", err)
	}

	// Agent dispatcher
	dispatcher, err := agents.NewDispatcher(chatProvider, registry, taskManager, nil, agents.Config{
		Model:         cfg.AI.ChatModel,
		Temperature:   cfg.AI.Temperature,
		MaxTokens:     cfg.AI.MaxTokens,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
	})
	if err != nil {
		log.Fatalf("Failed to init dispatcher: %v", err)
	}

	// HTTP server
	server := api.NewServer(
		api.ServerConfig{
			Port:         cfg.Server.Port,
			ServiceName:  cfg.App.Name,
			Version:      version,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		api.Handlers{
			Chat:   api.NewChatHandler(dispatcher, retry.DefaultPolicy(), cfg.Agent.TurnTimeout),
			Image:  api.NewImageHandler(taskManager),
			Crypto: api.NewCryptoHandler(providers.cmc, adv),
			Health: health.New(log, redisClient, cfg.App.Name, version),
		},
		log,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(cfg, server, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initRedis connects to Redis when enabled. Failure is not fatal.
func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Warnf("Redis unavailable, image tasks will use the in-memory store: %v", err)
		return nil
	}

	log.Infof("Redis connected at %s", cfg.Redis.Addr())
	return client
}

func initTaskStore(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) imagetask.Store {
	if redisClient != nil {
		log.Info("Image task store: redis")
		return imagetask.NewRedisStore(redisClient, cfg.Agent.ImageTaskTTL)
	}
	log.Info("Image task store: memory")
	return imagetask.NewMemoryStore(cfg.Agent.ImageTaskTTL)
}

// marketProviders bundles the configured data sources.
type marketProviders struct {
	cmc          *marketdata.CoinMarketCapClient
	tradingView  *marketdata.TradingViewClient
	yahoo        *marketdata.YahooClient
	alphaVantage *marketdata.AlphaVantageClient // nil without API key
	finnhub      *marketdata.FinnhubClient      // nil without API key
}

func initProviders(cfg *config.Config, log *logger.Logger) (*marketProviders, error) {
	limiter := ai.NewTokenBucketLimiter("marketdata", cfg.MarketData.ReqPerMinute, 0)
	timeout := cfg.MarketData.RequestTimeout

	cmc, err := marketdata.NewCoinMarketCapClient(cfg.MarketData.CoinMarketCapKey, timeout, limiter)
	if err != nil {
		return nil, err
	}

	p := &marketProviders{
		cmc:         cmc,
		tradingView: marketdata.NewTradingViewClient(timeout, limiter),
		yahoo:       marketdata.NewYahooClient(timeout, limiter),
	}

	if cfg.MarketData.AlphaVantageKey != "" {
		p.alphaVantage, err = marketdata.NewAlphaVantageClient(cfg.MarketData.AlphaVantageKey, timeout, limiter)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("Alpha Vantage key not set, stock quotes limited to Finnhub")
	}

	if cfg.MarketData.FinnhubKey != "" {
		p.finnhub, err = marketdata.NewFinnhubClient(cfg.MarketData.FinnhubKey, timeout, limiter)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// registerTools wires the tool catalog. Tools whose provider is not
// configured are skipped rather than registered broken.
func registerTools(registry *tools.Registry, p *marketProviders, adv *advisor.Advisor, log *logger.Logger) error {
	catalog := []tools.Tool{
		tools.NewCryptoPriceTool(p.cmc),
		tools.NewCryptoAnalysisTool(p.yahoo),
		tools.NewTradingViewAnalysisTool(p.tradingView),
		tools.NewMultiTimeframeAnalysisTool(p.tradingView),
		tools.NewMarketOverviewTool(p.cmc),
	}

	switch {
	case p.alphaVantage != nil && p.finnhub != nil:
		catalog = append(catalog, tools.NewStockQuoteTool(p.alphaVantage, p.finnhub))
	case p.alphaVantage != nil:
		catalog = append(catalog, tools.NewStockQuoteTool(p.alphaVantage, nil))
	case p.finnhub != nil:
		catalog = append(catalog, tools.NewStockQuoteTool(p.finnhub, nil))
	default:
		log.Info("No stock data provider configured, get_stock_quote disabled")
	}

	catalog = append(catalog,
		tools.NewCompareAssetsTool(p.yahoo),
		tools.NewRecommendationTool(adv),
	)

	for _, t := range catalog {
		if err := registry.Register(t); err != nil {
			return err
		}
		log.Infof("Tool registered: %s", tools.Describe(t))
	}
	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(cfg *config.Config, server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Shutdown error: %v", err)
	}

	// Flush error tracker
	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
