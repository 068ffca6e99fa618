package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/brightstay/membership-api/pkg/booking"
	"github.com/brightstay/membership-api/pkg/cache"
	"github.com/brightstay/membership-api/pkg/config"
	"github.com/brightstay/membership-api/pkg/logger"
	"github.com/brightstay/membership-api/pkg/metasphere"
	"github.com/brightstay/membership-api/pkg/observability"
	"github.com/brightstay/membership-api/pkg/provider"
	"github.com/brightstay/membership-api/pkg/routes"
	"github.com/brightstay/membership-api/pkg/server"
	"github.com/brightstay/membership-api/pkg/server/middleware"
	"github.com/brightstay/membership-api/pkg/validator"
)

func main() {
	flags := pflag.NewFlagSet("membership-api", pflag.ExitOnError)
	flags.String("config", "", "path to config file")
	flags.String("service.port", "8080", "listen port")
	flags.String("log.level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	configFile, _ := flags.GetString("config")

	// cfg and log are declared ahead of the options so the config-watch
	// callback can apply log-level changes once both exist.
	var (
		cfg *config.Config
		log logger.LogManager
	)

	opts := []config.Option{
		config.WithDefaults(map[string]interface{}{
			"service.endpoint":              "0.0.0.0",
			"service.port":                  "8080",
			"log.level":                     "info",
			"log.encoding":                  "console",
			"metasphere.base_url":           "https://servicehub.metasphere.global:8966/api",
			"metasphere.provider":           "metasphere-prod",
			"metasphere.hotel_id":           booking.DefaultHotelID,
			"metasphere.timeout":            "30s",
			"metasphere.insecure_tls":       false,
			"token.expiry_skew":             "2m",
			"token.default_ttl":             "15m",
			"redis.addr":                    "",
			"redis.cache_ttl":               "60s",
			"cors.enabled":                  true,
			"ratelimit.enabled":             false,
			"ratelimit.rps":                 25.0,
			"ratelimit.burst":               50,
			"observability.tracing_enabled": false,
		}),
		config.WithEnv("APP"),
		config.WithDotEnv(".env"),
		config.WithPFlags(flags),
		config.WithSensitiveKeys("metasphere.app_secret", "redis.password"),
	}
	if configFile != "" {
		opts = append(opts,
			config.WithFile(configFile),
			config.WithWatch(func() {
				if cfg == nil || log == nil {
					return
				}
				level := cfg.GetStringD("log.level", "info")
				if err := log.SetLogLevel(level); err != nil {
					log.WarnF("config reload: invalid log level %q: %v", level, err)
				} else {
					log.InfoF("config reloaded, log level now %q", level)
				}
			}),
		)
	}
	cfg = config.New(opts...)

	var err error
	log, err = logger.NewLogger(logger.LoggerOptions{
		Level:        cfg.GetStringD("log.level", "info"),
		Encoding:     cfg.GetStringD("log.encoding", "console"),
		EnableCaller: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.ValidateRequired("metasphere.app_key", "metasphere.app_secret"); err != nil {
		log.ErrorF("configuration invalid: %v", err)
		os.Exit(1)
	}
	log.InfoF("effective configuration: %v", cfg.MaskedSettings())

	tracingEnabled := cfg.GetBoolD("observability.tracing_enabled", false)
	if tracingEnabled {
		obs, err := observability.New(log, cfg)
		if err != nil {
			log.ErrorF("tracing init failed: %v", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Shutdown(ctx)
		}()
	}

	promCollector := middleware.NewPrometheusCollector("/metrics")
	tokenMetrics := provider.NewMetrics(promCollector.Registry())

	tokens := provider.NewTokenCache(
		provider.WithExpirySkew(cfg.GetDurationD("token.expiry_skew", 2*time.Minute)),
		provider.WithDefaultTTL(cfg.GetDurationD("token.default_ttl", 15*time.Minute)),
		provider.WithCacheLogger(log),
		provider.WithMetrics(tokenMetrics),
	)

	providerKey := cfg.GetStringD("metasphere.provider", "metasphere-prod")
	baseURL := cfg.GetStringD("metasphere.base_url", "")
	httpClient := metasphere.NewHTTPClient(cfg.GetBoolD("metasphere.insecure_tls", false))

	refresher := metasphere.NewRefresher(metasphere.RefresherConfig{
		Provider:   providerKey,
		TokenURL:   cfg.GetStringD("metasphere.token_url", baseURL+"/GetToken"),
		AppKey:     cfg.GetStringD("metasphere.app_key", ""),
		AppSecret:  cfg.GetStringD("metasphere.app_secret", ""),
		HTTPClient: httpClient,
	})
	client := metasphere.NewClient(metasphere.ClientConfig{
		BaseURL:    baseURL,
		Provider:   providerKey,
		Tokens:     tokens,
		Refresh:    refresher.RefreshFunc(),
		Logger:     log,
		Timeout:    cfg.GetDurationD("metasphere.timeout", 30*time.Second),
		HTTPClient: httpClient,
	})

	var responseCache *cache.ResponseCache
	if addr := cfg.GetStringD("redis.addr", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.GetStringD("redis.password", ""),
			DB:       cfg.GetIntD("redis.db", 0),
		})
		responseCache = cache.New(rdb, cfg.GetDurationD("redis.cache_ttl", time.Minute), log)
		log.InfoF("response cache enabled addr=%s", addr)
	}

	svc := booking.NewService(booking.ServiceConfig{
		Client:  client,
		Cache:   responseCache,
		Logger:  log,
		HotelID: cfg.GetStringD("metasphere.hotel_id", booking.DefaultHotelID),
	})

	engineOpts := []server.EngineOption{
		server.WithLogger(log),
		server.WithRecovery(true),
		server.WithPrometheusCollector(promCollector),
	}
	if cfg.GetBoolD("cors.enabled", true) {
		engineOpts = append(engineOpts, server.WithCors(middleware.DefaultCorsConfig()))
	}
	if cfg.GetBoolD("ratelimit.enabled", false) {
		engineOpts = append(engineOpts, server.WithRateLimit(middleware.NewRateLimitConfig(
			true,
			cfg.GetFloat64D("ratelimit.rps", 25),
			cfg.GetIntD("ratelimit.burst", 50),
			5*time.Minute,
		)))
	}
	if tracingEnabled {
		engineOpts = append(engineOpts, server.WithMiddleware(
			observability.GinMiddleware(cfg.GetStringD("service.name", "membership-api")),
		))
	}
	engine := server.NewEngine(engineOpts...)

	routes.Register(engine, routes.Deps{
		Service:   svc,
		Validator: validator.New(),
		Logger:    log,
	})

	if err := server.Start(engine,
		server.StartWithConfig(cfg),
		server.StartWithLogger(log),
	); err != nil {
		log.ErrorF("server exited with error: %v", err)
		os.Exit(1)
	}
}
