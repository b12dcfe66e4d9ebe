package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/audit"
	"github.com/xela07ax/linc-gateway/internal/connectors"
	"github.com/xela07ax/linc-gateway/internal/domain"
	"github.com/xela07ax/linc-gateway/internal/infra/auth"
	"github.com/xela07ax/linc-gateway/internal/registry"
)

const maxQueryBody = 1 << 20

// EchoData: ответ режима development-echo: запрос без изменений и адрес, куда он ушел бы.
type EchoData struct {
	Request  domain.RoutedRequest `json:"request"`
	Endpoint string               `json:"endpoint"`
}

// Router: ядро клиентского трафика: валидация, форвард, нормализация, аудит.
type Router struct {
	registry *registry.Registry
	env      registry.Environment
	echoMode bool
	caller   connectors.AgentCaller
	auditor  audit.Auditor
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewRouter(reg *registry.Registry, env registry.Environment, echoMode bool, caller connectors.AgentCaller, auditor audit.Auditor, metrics *Metrics, logger *zap.Logger) *Router {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Router{
		registry: reg,
		env:      env,
		echoMode: echoMode,
		caller:   caller,
		auditor:  auditor,
		metrics:  metrics,
		logger:   logger.Named("router"),
		now:      time.Now,
	}
}

// Route обрабатывает тело POST /query и возвращает HTTP-код и нормализованный ответ.
// Пишет в аудит только запросы, дошедшие до диспетчеризации.
func (r *Router) Route(ctx context.Context, raw []byte, clientAddr string) (int, domain.RoutedResponse) {
	var req domain.RoutedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return r.reject(req, fmt.Errorf("%w: malformed JSON: %v", domain.ErrBadRequest, err))
	}
	if req.Agent == "" || req.Task == "" {
		return r.reject(req, fmt.Errorf("%w: agent and task are required", domain.ErrBadRequest))
	}

	if req.RequestID == "" {
		req.RequestID = CorrelationIDFromContext(ctx)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	start := r.now()
	if err := r.registry.Validate(req.Agent, req.Task); err != nil {
		return r.reject(req, err)
	}

	agent := registry.Canonical(req.Agent)
	endpoint, err := r.registry.ResolveEndpoint(agent, r.env)
	if err != nil {
		return r.reject(req, err)
	}

	client := auth.ClientFromContext(ctx)
	log := r.logger.With(
		zap.String("correlation_id", req.RequestID),
		zap.String("agent", agent),
		zap.String("task", req.Task),
		zap.String("client_id", client.ID),
	)

	if r.echoMode {
		r.record(req, agent, domain.OutcomeDevelopmentEcho, start, clientAddr)
		log.Debug("development echo", zap.String("endpoint", endpoint))
		return http.StatusOK, domain.RoutedResponse{
			Status:    domain.StatusSuccess,
			Message:   "development echo",
			Data:      EchoData{Request: req, Endpoint: endpoint},
			RequestID: req.RequestID,
			Agent:     agent,
			Timestamp: r.now().UnixMilli(),
		}
	}

	res := r.caller.Call(ctx, connectors.Call{
		Agent:         agent,
		Endpoint:      endpoint,
		Task:          req.Task,
		CorrelationID: req.RequestID,
		Payload:       req.Data,
	})

	switch res.Kind {
	case connectors.KindTransportError:
		r.record(req, agent, domain.OutcomeConnectionError, start, clientAddr)
		log.Warn("agent unreachable", zap.Error(res.Err))
		return http.StatusBadGateway, r.failure(req, agent, fmt.Sprintf("Failed to reach agent %s", agent))

	case connectors.KindParseError:
		r.record(req, agent, domain.OutcomeInvalidResponse, start, clientAddr)
		log.Warn("agent returned invalid response", zap.Int("status_code", res.StatusCode), zap.Error(res.Err))
		return http.StatusBadGateway, r.failure(req, agent, fmt.Sprintf("Invalid response from agent %s", agent))

	case connectors.KindOK:
		outcome := domain.OutcomeSuccess
		if res.StatusCode < 200 || res.StatusCode > 299 {
			outcome = domain.OutcomeError
		}
		r.record(req, agent, outcome, start, clientAddr)

		resp := domain.RoutedResponse{
			Status:    res.Reply.Status,
			Message:   res.Reply.Message,
			RequestID: req.RequestID,
			Agent:     agent,
			Timestamp: res.Reply.Timestamp,
		}
		if len(res.Reply.Data) > 0 {
			resp.Data = res.Reply.Data
		}
		if resp.Timestamp == 0 {
			resp.Timestamp = r.now().UnixMilli()
		}
		return res.StatusCode, resp

	default:
		log.Error("unexpected agent result kind", zap.Stringer("kind", res.Kind))
		return http.StatusInternalServerError, r.failure(req, agent, "Internal error")
	}
}

// HandleQuery: HTTP-обработчик POST /query.
func (r *Router) HandleQuery(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxQueryBody))
	if err != nil {
		status, resp := r.reject(domain.RoutedRequest{}, fmt.Errorf("%w: failed to read body", domain.ErrBadRequest))
		WriteJSON(w, status, resp)
		return
	}
	defer req.Body.Close()

	status, resp := r.Route(req.Context(), body, req.RemoteAddr)
	WriteJSON(w, status, resp)
}

// reject: отказ до диспетчеризации, без записи в аудит.
func (r *Router) reject(req domain.RoutedRequest, err error) (int, domain.RoutedResponse) {
	var (
		reason  = "bad_request"
		message = "Invalid request body"
	)
	switch {
	case errors.Is(err, domain.ErrAgentNotFound):
		reason = "agent_not_found"
		message = fmt.Sprintf("Unknown agent: %s", req.Agent)
	case errors.Is(err, domain.ErrTaskNotAllowed):
		reason = "task_not_allowed"
		message = fmt.Sprintf("Task '%s' is not allowed for agent '%s'", req.Task, registry.Canonical(req.Agent))
	}
	r.metrics.RejectedTotal.WithLabelValues(reason).Inc()
	r.logger.Debug("request rejected", zap.String("reason", reason), zap.Error(err))

	return domain.HTTPStatus(err), domain.RoutedResponse{
		Status:    domain.StatusError,
		Message:   message,
		RequestID: req.RequestID,
		Timestamp: r.now().UnixMilli(),
	}
}

func (r *Router) failure(req domain.RoutedRequest, agent, message string) domain.RoutedResponse {
	return domain.RoutedResponse{
		Status:    domain.StatusError,
		Message:   message,
		RequestID: req.RequestID,
		Agent:     agent,
		Timestamp: r.now().UnixMilli(),
	}
}

func (r *Router) record(req domain.RoutedRequest, agent string, outcome domain.Outcome, start time.Time, clientAddr string) {
	now := r.now()
	elapsed := now.Sub(start)

	r.metrics.TotalRequests.WithLabelValues(agent, req.Task, string(outcome)).Inc()
	r.metrics.RequestDuration.WithLabelValues(agent, req.Task, string(outcome)).Observe(elapsed.Seconds())

	// Асинхронная запись: отмена входящего запроса её не откатывает
	r.auditor.Log(audit.LogEntry{
		Timestamp:     now.UnixMilli(),
		CorrelationID: req.RequestID,
		Agent:         agent,
		Task:          req.Task,
		Outcome:       outcome,
		DurationMs:    elapsed.Milliseconds(),
		ClientAddress: clientAddr,
	})
}

// WriteJSON пишет тело ответа с кодом статуса.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
