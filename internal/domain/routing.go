package domain

import "encoding/json"

// Статусы ответа агента и шлюза
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome: итог маршрутизации, попадает в аудит
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeError           Outcome = "error"
	OutcomeDevelopmentEcho Outcome = "development-echo"
	OutcomeInvalidResponse Outcome = "invalid-response"
	OutcomeConnectionError Outcome = "connection-error"
)

// RoutedRequest: тело POST /query
type RoutedRequest struct {
	Agent     string          `json:"agent"`
	Task      string          `json:"task"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"` // correlation id, генерируется если пуст
}

// RoutedResponse: нормализованный ответ шлюза клиенту.
// RequestID всегда равен id запроса (или сгенерированному шлюзом).
type RoutedResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// AgentReply: ожидаемая форма ответа агента.
type AgentReply struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Valid проверяет, что агент ответил в согласованном контракте.
func (r *AgentReply) Valid() bool {
	return r.Status == StatusSuccess || r.Status == StatusError
}
