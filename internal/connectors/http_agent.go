package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// Заголовки, в которых задача и correlation id уходят агенту вне тела запроса
const (
	HeaderTask          = "X-Agent-Task"
	HeaderCorrelationID = "X-Correlation-ID"
)

const maxReplyBytes = 10 << 20

// Call: один исходящий вызов агента
type Call struct {
	Agent         string
	Endpoint      string
	Task          string
	CorrelationID string
	Payload       json.RawMessage
}

// AgentCaller: контракт исходящего вызова. Повторов нет: не более одной попытки на вызов.
type AgentCaller interface {
	Call(ctx context.Context, c Call) Result
}

// HTTPAgentClient ходит к агентам по HTTP/JSON.
type HTTPAgentClient struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPAgentClient создает клиента с обязательным таймаутом на каждый вызов.
func NewHTTPAgentClient(client *http.Client, timeout time.Duration) *HTTPAgentClient {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPAgentClient{client: client, timeout: timeout}
}

func (a *HTTPAgentClient) Call(ctx context.Context, c Call) Result {
	// Защитный таймаут на уровне вызова: истечение = TransportError, не повод для ретрая
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload := c.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return TransportFailure(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTask, c.Task)
	req.Header.Set(HeaderCorrelationID, c.CorrelationID)

	resp, err := a.client.Do(req)
	if err != nil {
		return TransportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return TransportFailure(fmt.Errorf("read body: %w", err))
	}

	return ParseReply(resp.StatusCode, body)
}

// ParseReply разбирает тело агента в согласованный контракт {status, message?, data?, timestamp}.
func ParseReply(status int, body []byte) Result {
	var reply domain.AgentReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return parseError(status, body, err)
	}
	if !reply.Valid() {
		return parseError(status, body, errors.New("missing or unknown status field"))
	}
	return okResult(status, reply, body)
}
