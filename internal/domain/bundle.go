package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// MessageBundle: пачка фрагментов медицинского сообщения. Оркестратор её не изменяет.
type MessageBundle struct {
	ResourceType string            `json:"resourceType,omitempty"`
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Timestamp    *time.Time        `json:"timestamp,omitempty"`
	Entry        []json.RawMessage `json:"entry"`
}

// ExtractedData: результат классификации бандла внешним сервисом.
// Поля зависят от домена (claims, patient, coverage ...), поэтому храним как объект.
type ExtractedData map[string]any

// MessageType возвращает тип сообщения или пустую строку.
func (e ExtractedData) MessageType() string {
	if e == nil {
		return ""
	}
	mt, _ := e["message_type"].(string)
	return mt
}

// CorrelationStatus: статус записи корреляции
type CorrelationStatus string

// StatusProcessed значит «классифицирован и направлен», а не «доставлен».
const StatusProcessed CorrelationStatus = "processed"

// ErrCorrelationExists: запись для пары (correlation id, bundle id) уже есть, исходная не меняется.
var ErrCorrelationExists = errors.New("correlation record already exists")

// CorrelationRecord пишется до попытки форварда, поэтому существует даже при его сбое.
// Ключ: пара (correlation id, bundle id), один id может пройти через несколько бандлов.
type CorrelationRecord struct {
	CorrelationID string            `json:"correlation_id"`
	MessageType   string            `json:"message_type"`
	TargetAgent   string            `json:"target_agent"`
	BundleID      string            `json:"bundle_id"`
	ProcessedAt   int64             `json:"processed_at"` // unix millis
	Status        CorrelationStatus `json:"status"`
}
