package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/connectors"
	"github.com/xela07ax/linc-gateway/internal/domain"
	"github.com/xela07ax/linc-gateway/internal/engine"
	"github.com/xela07ax/linc-gateway/internal/registry"
)

const correlationWriteTimeout = 5 * time.Second

// CorrelationStore: долговременное хранилище записей корреляции.
// Повтор пары (correlation id, bundle id) возвращает domain.ErrCorrelationExists.
type CorrelationStore interface {
	SaveCorrelation(ctx context.Context, rec domain.CorrelationRecord) error
}

// ProcessBundleRequest: тело задачи process_bundle
type ProcessBundleRequest struct {
	Bundle        json.RawMessage `json:"bundle"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// RouteRequest: тело задачи route: классификация уже сделана выше по потоку
type RouteRequest struct {
	ExtractedData domain.ExtractedData `json:"extracted_data"`
	BundleID      string               `json:"bundle_id,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty"`
}

// Result: составной ответ оркестратора. AgentResult заполнен всегда, даже при сбое форварда.
type Result struct {
	CorrelationID string            `json:"correlation_id"`
	MessageType   string            `json:"message_type"`
	TargetAgent   string            `json:"target_agent"`
	AgentTask     string            `json:"agent_task"`
	AgentResult   domain.AgentReply `json:"agent_result"`
	BundleID      string            `json:"bundle_id"`
	ProcessedAt   int64             `json:"processed_at"` // unix millis
}

// Config: неизменяемые зависимости сервиса, собираются при старте.
type Config struct {
	Routes          Routes
	Transformations Transformations
	Registry        *registry.Registry
	Environment     registry.Environment
}

// Service: оркестратор бандлов. Каждый вызов независим и завершается после первой попытки.
type Service struct {
	cfg       Config
	extractor Extractor
	caller    connectors.AgentCaller
	store     CorrelationStore
	bundles   *prometheus.CounterVec
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(cfg Config, extractor Extractor, caller connectors.AgentCaller, store CorrelationStore, bundles *prometheus.CounterVec, logger *zap.Logger) *Service {
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		caller:    caller,
		store:     store,
		bundles:   bundles,
		logger:    logger.Named("orchestrator"),
		now:       time.Now,
	}
}

// ProcessBundle: RECEIVED -> EXTRACTING -> CLASSIFIED -> ROUTING -> FORWARDED | FORWARD_FAILED.
// Ошибка извлечения терминальна и не оставляет записи корреляции.
func (s *Service) ProcessBundle(ctx context.Context, req ProcessBundleRequest) (*Result, error) {
	bundle, err := decodeBundle(req.Bundle)
	if err != nil {
		return nil, err
	}

	correlationID := s.correlationID(ctx, req.CorrelationID)
	log := s.logger.With(zap.String("correlation_id", correlationID), zap.String("bundle_id", bundle.ID))

	extracted, err := s.extractor.Extract(ctx, correlationID, req.Bundle)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return nil, err
	}
	log.Debug("bundle classified", zap.String("message_type", extracted.MessageType()))

	return s.route(ctx, log, correlationID, bundle.ID, extracted)
}

// Route выполняет шаги маршрутизации для заранее извлеченных данных.
func (s *Service) Route(ctx context.Context, req RouteRequest) (*Result, error) {
	if req.ExtractedData == nil {
		return nil, fmt.Errorf("%w: extracted_data is required", domain.ErrBadRequest)
	}
	correlationID := s.correlationID(ctx, req.CorrelationID)
	log := s.logger.With(zap.String("correlation_id", correlationID), zap.String("bundle_id", req.BundleID))
	return s.route(ctx, log, correlationID, req.BundleID, req.ExtractedData)
}

// Transform: сквозной вызов /transform сервиса извлечения.
func (s *Service) Transform(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrBadRequest)
	}
	return s.extractor.Transform(ctx, s.correlationID(ctx, ""), body)
}

// Extract: только классификация, без маршрутизации и записи корреляции.
func (s *Service) Extract(ctx context.Context, req ProcessBundleRequest) (domain.ExtractedData, error) {
	if _, err := decodeBundle(req.Bundle); err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, s.correlationID(ctx, req.CorrelationID), req.Bundle)
}

func (s *Service) route(ctx context.Context, log *zap.Logger, correlationID, bundleID string, data domain.ExtractedData) (*Result, error) {
	messageType := data.MessageType()
	agent := s.cfg.Routes.AgentFor(messageType)
	task := s.cfg.Routes.TaskFor(agent, messageType)

	log = log.With(zap.String("message_type", messageType), zap.String("agent", agent), zap.String("task", task))

	payload, err := s.cfg.Transformations.Apply(agent, data, correlationID)
	if err != nil {
		return nil, err
	}

	res := &Result{
		CorrelationID: correlationID,
		MessageType:   messageType,
		TargetAgent:   agent,
		AgentTask:     task,
		BundleID:      bundleID,
		ProcessedAt:   s.now().UnixMilli(),
	}

	// Запись делается до форварда: она означает «классифицирован и направлен», а не «доставлен».
	// Отмена входящего запроса запись не откатывает.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), correlationWriteTimeout)
	err = s.store.SaveCorrelation(writeCtx, domain.CorrelationRecord{
		CorrelationID: correlationID,
		MessageType:   messageType,
		TargetAgent:   agent,
		BundleID:      bundleID,
		ProcessedAt:   res.ProcessedAt,
		Status:        domain.StatusProcessed,
	})
	cancel()
	switch {
	case errors.Is(err, domain.ErrCorrelationExists):
		// Повтор того же бандла под тем же id: запись уже есть, форвард повторяем
		log.Info("correlation record already present, forwarding again")
	case err != nil:
		log.Error("correlation write failed, bundle not forwarded", zap.Error(err))
		return nil, fmt.Errorf("save correlation: %w", err)
	}

	res.AgentResult = s.forward(ctx, log, agent, task, correlationID, payload)
	if s.bundles != nil {
		s.bundles.WithLabelValues(messageType, agent, res.AgentResult.Status).Inc()
	}
	return res, nil
}

// forward делает одну попытку. Любой сбой встраивается в agent_result, а не поднимается наверх.
func (s *Service) forward(ctx context.Context, log *zap.Logger, agent, task, correlationID string, payload json.RawMessage) domain.AgentReply {
	if err := s.cfg.Registry.Validate(agent, task); err != nil {
		log.Warn("route rejected by registry", zap.Error(err))
		return forwardFailed(err.Error())
	}
	endpoint, err := s.cfg.Registry.ResolveEndpoint(agent, s.cfg.Environment)
	if err != nil {
		log.Warn("endpoint resolution failed", zap.Error(err))
		return forwardFailed(err.Error())
	}

	result := s.caller.Call(ctx, connectors.Call{
		Agent:         agent,
		Endpoint:      endpoint,
		Task:          task,
		CorrelationID: correlationID,
		Payload:       payload,
	})

	switch result.Kind {
	case connectors.KindOK:
		log.Info("bundle forwarded", zap.Int("status_code", result.StatusCode), zap.String("agent_status", result.Reply.Status))
		return result.Reply
	case connectors.KindParseError, connectors.KindTransportError:
		log.Warn("forward failed", zap.Stringer("kind", result.Kind), zap.Error(result.Err))
		return forwardFailed(result.Err.Error())
	default:
		return forwardFailed(fmt.Sprintf("unexpected result kind %s", result.Kind))
	}
}

func forwardFailed(message string) domain.AgentReply {
	return domain.AgentReply{Status: domain.StatusError, Message: message}
}

func (s *Service) correlationID(ctx context.Context, given string) string {
	if given != "" {
		return given
	}
	if id := engine.CorrelationIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}

func decodeBundle(raw json.RawMessage) (domain.MessageBundle, error) {
	var bundle domain.MessageBundle
	if len(raw) == 0 {
		return bundle, fmt.Errorf("%w: bundle is required", domain.ErrBadRequest)
	}
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return bundle, fmt.Errorf("%w: malformed bundle: %v", domain.ErrBadRequest, err)
	}
	return bundle, nil
}
