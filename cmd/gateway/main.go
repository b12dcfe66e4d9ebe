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

	"github.com/xela07ax/linc-gateway/internal/audit"
	"github.com/xela07ax/linc-gateway/internal/connectors"
	"github.com/xela07ax/linc-gateway/internal/console/handler"
	"github.com/xela07ax/linc-gateway/internal/console/service"
	"github.com/xela07ax/linc-gateway/internal/engine"
	"github.com/xela07ax/linc-gateway/internal/infra"
	"github.com/xela07ax/linc-gateway/internal/infra/auth"
	"github.com/xela07ax/linc-gateway/internal/registry"
	"github.com/xela07ax/linc-gateway/internal/server"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		// логгера еще нет
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	os.Exit(infra.ExitCode(logger, "gateway", run(cfg, logger)))
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Инфраструктура и ресурсы
	rdb, err := infra.ConnectRedis(appCtx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 2. Таблицы диспетчеризации: собираются один раз и дальше только читаются
	tables, err := registry.DefaultTables().WithOverrides(cfg.Registry.Endpoints)
	if err != nil {
		return err
	}
	reg, err := registry.New(tables)
	if err != nil {
		return err
	}

	// Метрики
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(promReg)

	// 3. Аудит: асинхронная запись пачками + очистка по таймеру
	auditStore := audit.NewRedisStore(rdb, cfg.Audit.Retention(), logger)
	auditWriter := audit.NewWriter(auditStore, cfg.Audit.BufferSize, cfg.Audit.FlushInterval, metrics.AuditBufferFill, logger)
	auditWriter.Start()
	defer auditWriter.Stop()

	sweeper := audit.NewSweeper(auditStore, cfg.Audit.RetentionDays, cfg.Audit.SweepInterval, metrics.AuditSweepDeleted, logger)
	go sweeper.Start(appCtx)

	// 4. Авторизация: подпись (если задан ключ) + хранилище токенов
	var signature auth.SignatureValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			return err
		}
		signature = auth.NewBaseValidator(pub)
		logger.Info("jwt signature pre-check enabled")
	}
	gate := auth.NewGate(auth.NewRedisTokenStore(rdb), signature, logger)

	// 5. Исполнение: HTTP к агентам + предохранитель на каждого агента, без ретраев
	httpAgents := connectors.NewHTTPAgentClient(&http.Client{}, cfg.Gateway.ForwardTimeout)
	caller := engine.NewReliabilityWrapper(httpAgents, reg.Agents(), engine.BreakerSettings{
		MaxRequests: uint32(cfg.Gateway.CBMaxRequests),
		Interval:    cfg.Gateway.CBInterval,
		Timeout:     cfg.Gateway.CBTimeout,
		MaxFailures: uint32(cfg.Gateway.CBMaxFailures),
	}, metrics, logger)

	env := registry.Environment(cfg.Gateway.Environment)
	router := engine.NewRouter(reg, env, cfg.Gateway.EchoMode, caller, auditWriter, metrics, logger)
	if cfg.Gateway.EchoMode {
		logger.Warn("echo mode enabled: requests are not forwarded to agents")
	}

	auditHandler := handler.NewAuditHandler(service.NewAuditService(auditStore, cfg.Audit.QueryLimit, cfg.Audit.QueryLimit*10), logger)

	// 6. HTTP Server
	api := server.NewGatewayServer(cfg.Server, logger, gate, router, auditHandler, metrics,
		promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	srv := server.NewHTTPServer(cfg.Server, api)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway started",
			zap.String("addr", srv.Addr),
			zap.String("environment", string(env)),
			zap.Strings("agents", reg.Agents()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. Graceful Shutdown
	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("gateway stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("gateway exited properly")
	return nil
}
