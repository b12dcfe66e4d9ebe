package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/console/handler"
	"github.com/xela07ax/linc-gateway/internal/engine"
	"github.com/xela07ax/linc-gateway/internal/infra"
	"github.com/xela07ax/linc-gateway/internal/infra/auth"
	"github.com/xela07ax/linc-gateway/internal/orchestrator"
)

// GatewayServer: клиентский шлюз: /query, админка логов, health и метрики.
type GatewayServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	cfg     infra.ServerConfig
	metrics *engine.Metrics

	gate         *auth.Gate            // bearer-токен до любой маршрутизации
	queryRouter  *engine.Router        // POST /query
	auditHandler *handler.AuditHandler // GET /admin/logs/{date}
	metricsH     http.Handler          // GET /metrics
}

// NewGatewayServer собирает chi-роутер шлюза со всеми зависимостями
func NewGatewayServer(
	cfg infra.ServerConfig,
	logger *zap.Logger,
	gate *auth.Gate,
	queryRouter *engine.Router,
	auditH *handler.AuditHandler,
	metrics *engine.Metrics,
	metricsH http.Handler,
) *GatewayServer {
	s := &GatewayServer{
		router:       chi.NewRouter(),
		logger:       logger.Named("gateway-api"),
		cfg:          cfg,
		metrics:      metrics,
		gate:         gate,
		queryRouter:  queryRouter,
		auditHandler: auditH,
		metricsH:     metricsH,
	}

	s.routes()
	return s
}

func (s *GatewayServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(engine.CorrelationMiddleware)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/health", Health)
		if s.metricsH != nil {
			r.Method(http.MethodGet, "/metrics", s.metricsH)
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (bearer-токен из хранилища) ---
	r.Group(func(r chi.Router) {
		r.Use(engine.RateLimitMiddleware(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.metrics, s.logger))
		r.Use(auth.NewMiddleware(s.gate, s.logger))

		r.Post("/query", s.queryRouter.HandleQuery)
		r.Get("/admin/logs/{date}", s.auditHandler.GetLogs)
	})
}

// ServeHTTP позволяет использовать GatewayServer как стандартный http.Handler
func (s *GatewayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// OrchestratorServer: прием бандлов от внешних систем.
type OrchestratorServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	cfg      infra.ServerConfig
	metrics  *engine.Metrics
	tasks    *orchestrator.Handler
	metricsH http.Handler
}

func NewOrchestratorServer(
	cfg infra.ServerConfig,
	logger *zap.Logger,
	tasks *orchestrator.Handler,
	metrics *engine.Metrics,
	metricsH http.Handler,
) *OrchestratorServer {
	s := &OrchestratorServer{
		router:   chi.NewRouter(),
		logger:   logger.Named("orchestrator-api"),
		cfg:      cfg,
		metrics:  metrics,
		tasks:    tasks,
		metricsH: metricsH,
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(engine.CorrelationMiddleware)

	r.Get("/health", Health)
	if metricsH != nil {
		r.Method(http.MethodGet, "/metrics", metricsH)
	}
	r.Group(func(r chi.Router) {
		r.Use(engine.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, metrics, s.logger))
		r.Mount("/tasks", tasks.Routes())
	})

	return s
}

func (s *OrchestratorServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health: GET /health, без авторизации
func Health(w http.ResponseWriter, _ *http.Request) {
	engine.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

// AccessLog пишет одну строку zap на запрос.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// NewHTTPServer: http.Server с таймаутами из конфига
func NewHTTPServer(cfg infra.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
