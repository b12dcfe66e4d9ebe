package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/connectors"
	"github.com/xela07ax/linc-gateway/internal/engine"
	"github.com/xela07ax/linc-gateway/internal/infra"
	"github.com/xela07ax/linc-gateway/internal/orchestrator"
	"github.com/xela07ax/linc-gateway/internal/registry"
	"github.com/xela07ax/linc-gateway/internal/repository/postgres"
	"github.com/xela07ax/linc-gateway/internal/server"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	os.Exit(infra.ExitCode(logger, "orchestrator", run(cfg, logger)))
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Инициализация ресурсов: Postgres для записей корреляции
	pool, err := infra.ConnectPostgres(appCtx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	correlations := postgres.NewCorrelationRepo(pool)
	if err := correlations.EnsureSchema(appCtx); err != nil {
		return err
	}

	tables, err := registry.DefaultTables().WithOverrides(cfg.Registry.Endpoints)
	if err != nil {
		return err
	}
	reg, err := registry.New(tables)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(promReg)

	// 2. Инициализация слоев (Dependency Injection)
	httpClient := &http.Client{}
	caller := engine.NewReliabilityWrapper(
		connectors.NewHTTPAgentClient(httpClient, cfg.Gateway.ForwardTimeout),
		reg.Agents(),
		engine.BreakerSettings{
			MaxRequests: uint32(cfg.Gateway.CBMaxRequests),
			Interval:    cfg.Gateway.CBInterval,
			Timeout:     cfg.Gateway.CBTimeout,
			MaxFailures: uint32(cfg.Gateway.CBMaxFailures),
		}, metrics, logger)

	svc := orchestrator.NewService(orchestrator.Config{
		Routes:          orchestrator.DefaultRoutes(),
		Transformations: orchestrator.DefaultTransformations(),
		Registry:        reg,
		Environment:     registry.Environment(cfg.Gateway.Environment),
	},
		orchestrator.NewExtractionClient(cfg.Orchestrator.ExtractionURL, httpClient, cfg.Orchestrator.ExtractionTimeout),
		caller, correlations, metrics.BundlesTotal, logger)

	// 3. Настройка роутера
	api := server.NewOrchestratorServer(cfg.Server, logger, orchestrator.NewHandler(svc, logger), metrics,
		promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	srv := server.NewHTTPServer(cfg.Server, api)

	// 4. Запуск сервера
	errCh := make(chan error, 1)
	go func() {
		logger.Info("orchestrator started",
			zap.String("addr", srv.Addr),
			zap.String("extraction_url", cfg.Orchestrator.ExtractionURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("orchestrator stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
