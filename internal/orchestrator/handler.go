package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/domain"
	"github.com/xela07ax/linc-gateway/internal/engine"
)

// Дискриминаторы задач POST /tasks/{task}
const (
	TaskProcessBundle = "process_bundle"
	TaskTransform     = "transform"
	TaskRoute         = "route"
	TaskExtract       = "extract"
)

const maxTaskBody = 10 << 20

// Envelope: единый ответ оркестратора
type Envelope struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Named("orchestrator-api")}
}

// Routes Маршруты для Chi
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{task}", h.HandleTask) // POST /tasks/process_bundle
	return r
}

func (h *Handler) HandleTask(w http.ResponseWriter, r *http.Request) {
	task := chi.URLParam(r, "task")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTaskBody))
	if err != nil {
		h.fail(w, fmt.Errorf("%w: failed to read body", domain.ErrBadRequest))
		return
	}
	defer r.Body.Close()

	var data any
	switch task {
	case TaskProcessBundle:
		var req ProcessBundleRequest
		if err := decode(body, &req); err != nil {
			h.fail(w, err)
			return
		}
		data, err = h.svc.ProcessBundle(r.Context(), req)

	case TaskRoute:
		var req RouteRequest
		if err := decode(body, &req); err != nil {
			h.fail(w, err)
			return
		}
		data, err = h.svc.Route(r.Context(), req)

	case TaskExtract:
		var req ProcessBundleRequest
		if err := decode(body, &req); err != nil {
			h.fail(w, err)
			return
		}
		data, err = h.svc.Extract(r.Context(), req)

	case TaskTransform:
		var out json.RawMessage
		out, err = h.svc.Transform(r.Context(), body)
		if len(out) > 0 {
			data = out
		}

	default:
		err = &domain.UnknownTaskError{Task: task}
	}

	if err != nil {
		h.fail(w, err)
		return
	}
	engine.WriteJSON(w, http.StatusOK, Envelope{
		Status:    domain.StatusSuccess,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	env := Envelope{
		Status:    domain.StatusError,
		Message:   err.Error(),
		Timestamp: time.Now().UnixMilli(),
	}

	var extErr *domain.ExtractionFailedError
	if errors.As(err, &extErr) {
		// детали сервиса извлечения отдаем вызывающему как есть
		env.Message = extErr.Message
		if len(extErr.Details) > 0 {
			env.Data = extErr.Details
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("task failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			env.Message = "Internal error"
		}
	}
	engine.WriteJSON(w, status, env)
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", domain.ErrBadRequest, err)
	}
	return nil
}
