package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xela07ax/linc-gateway/internal/connectors"
	"github.com/xela07ax/linc-gateway/internal/domain"
)

const maxExtractionReply = 10 << 20

// Extractor: внешний классификатор бандлов.
type Extractor interface {
	Extract(ctx context.Context, correlationID string, bundle json.RawMessage) (domain.ExtractedData, error)
	Transform(ctx context.Context, correlationID string, body json.RawMessage) (json.RawMessage, error)
}

// ExtractionClient: HTTP-клиент сервиса извлечения.
type ExtractionClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewExtractionClient(baseURL string, client *http.Client, timeout time.Duration) *ExtractionClient {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExtractionClient{baseURL: strings.TrimRight(baseURL, "/"), client: client, timeout: timeout}
}

// extractionReply: ответ сервиса извлечения {status, data, message?, details?}
type extractionReply struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (c *ExtractionClient) Extract(ctx context.Context, correlationID string, bundle json.RawMessage) (domain.ExtractedData, error) {
	data, err := c.post(ctx, "/extract", correlationID, bundle)
	if err != nil {
		return nil, err
	}
	var extracted domain.ExtractedData
	if err := json.Unmarshal(data, &extracted); err != nil || extracted == nil {
		return nil, &domain.ExtractionUnavailableError{Err: fmt.Errorf("%w: extracted data is not an object", domain.ErrUpstreamInvalidResponse)}
	}
	return extracted, nil
}

func (c *ExtractionClient) Transform(ctx context.Context, correlationID string, body json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/transform", correlationID, body)
}

// post делает один вызов без повторов. Отказ сервиса -> ExtractionFailedError, сеть -> ExtractionUnavailableError.
func (c *ExtractionClient) post(ctx context.Context, path, correlationID string, body json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ExtractionUnavailableError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if correlationID != "" {
		req.Header.Set(connectors.HeaderCorrelationID, correlationID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ExtractionUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxExtractionReply))
	if err != nil {
		return nil, &domain.ExtractionUnavailableError{Err: err}
	}

	var reply extractionReply
	parseErr := json.Unmarshal(raw, &reply)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || (parseErr == nil && reply.Status == domain.StatusError) {
		failed := &domain.ExtractionFailedError{StatusCode: resp.StatusCode, Message: reply.Message}
		if failed.Message == "" {
			failed.Message = http.StatusText(resp.StatusCode)
		}
		switch {
		case parseErr != nil:
			// тело не JSON: отдаем его строкой, чтобы детали не потерялись
			failed.Details, _ = json.Marshal(string(raw))
		case len(reply.Details) > 0:
			failed.Details = reply.Details
		default:
			failed.Details = raw
		}
		return nil, failed
	}

	if parseErr != nil {
		return nil, &domain.ExtractionUnavailableError{Err: fmt.Errorf("%w: %v", domain.ErrUpstreamInvalidResponse, parseErr)}
	}
	// 2xx без явного success вне контракта: ни результат, ни отказ
	if reply.Status != domain.StatusSuccess {
		return nil, &domain.ExtractionUnavailableError{Err: fmt.Errorf("%w: unexpected status %q", domain.ErrUpstreamInvalidResponse, reply.Status)}
	}
	return reply.Data, nil
}
