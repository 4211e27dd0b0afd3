package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/config"
	"github.com/digiinvoice/invoicing-backend/internal/crypto"
	"github.com/digiinvoice/invoicing-backend/internal/fbr"
	"github.com/digiinvoice/invoicing-backend/internal/httpapi"
	"github.com/digiinvoice/invoicing-backend/internal/jwtutil"
	"github.com/digiinvoice/invoicing-backend/internal/monitoring"
	"github.com/digiinvoice/invoicing-backend/internal/service"
	"github.com/digiinvoice/invoicing-backend/internal/store"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	cipher, err := crypto.New(cfg.TokenKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token cipher")
	}

	var rdb store.RedisClient
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Tenant cache enabled")
	}

	registry, err := store.NewRegistry(cfg.DB.RegistryDSN(), rdb, cipher)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to tenant registry")
	}
	defer registry.Close()

	monitoring.InitMetrics()

	factory := tenantdb.NewFactory(&cfg.DB)
	router := tenantdb.NewRouter(registry, factory, cfg.ResolveTimeout)

	gateway := fbr.NewClient(&cfg.FBR)
	tokens := jwtutil.NewManager(cfg.JWT.SigningKey, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)

	handlers := httpapi.Handlers{
		Auth:     httpapi.NewAuthHandler(tokens, cfg.Admin.Email, cfg.Admin.Password),
		Tenants:  httpapi.NewTenantHandler(service.NewTenantService(registry, router)),
		Invoices: httpapi.NewInvoiceHandler(service.NewInvoiceService(gateway), router.FindInvoiceAcrossTenants),
		Buyers:   httpapi.NewBuyerHandler(service.NewBuyerService()),
		Tokens:   tokens,
		Resolve:  router.GetTenantDatabase,
	}

	e := httpapi.NewServer(cfg.ServiceName, handlers)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting HTTP API server")
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer := &http.Server{
			Addr:    ":" + cfg.Server.MetricsPort,
			Handler: mux,
		}

		log.Info().Str("port", cfg.Server.MetricsPort).Msg("HTTP server for health checks and metrics started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	router.CloseAllConnections()
	log.Info().Msg("Server exiting")
}
