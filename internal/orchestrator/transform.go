package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/xela07ax/linc-gateway/internal/domain"
	"github.com/xela07ax/linc-gateway/internal/registry"
)

// Rule приводит извлеченные данные к форме, которую ждет конкретный агент.
type Rule func(data domain.ExtractedData, correlationID string) map[string]any

// Transformations: правила по агентам. Агенты без правила получают данные как есть.
type Transformations map[string]Rule

// DefaultTransformations описывает только claims и eligibility.
// TODO: правила для recordlinc, policylinc, authlinc, datalinc после согласования контрактов с их командами.
func DefaultTransformations() Transformations {
	return Transformations{
		registry.ClaimLinc: claimsRule,
		registry.EligiLinc: eligibilityRule,
	}
}

// Apply возвращает тело запроса к агенту.
func (t Transformations) Apply(agent string, data domain.ExtractedData, correlationID string) (json.RawMessage, error) {
	var payload any = data
	if rule, ok := t[agent]; ok {
		payload = rule(data, correlationID)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transform for %s: %w", agent, err)
	}
	return raw, nil
}

func claimsRule(data domain.ExtractedData, correlationID string) map[string]any {
	out := map[string]any{
		"message_type":   data.MessageType(),
		"correlation_id": correlationID,
		"claims":         listOf(data["claims"]),
	}
	copyFields(out, data, "patient", "provider", "payer", "encounter", "submitted_at")
	return out
}

func eligibilityRule(data domain.ExtractedData, correlationID string) map[string]any {
	out := map[string]any{
		"message_type":   data.MessageType(),
		"correlation_id": correlationID,
	}
	// coverage приходит либо списком, либо одиночным объектом
	if cov, ok := data["coverage"]; ok {
		out["coverage"] = listOf(cov)
	}
	copyFields(out, data, "patient", "payer", "service_type", "service_date")
	return out
}

func copyFields(dst map[string]any, src domain.ExtractedData, keys ...string) {
	for _, k := range keys {
		if v, ok := src[k]; ok && v != nil {
			dst[k] = v
		}
	}
}

func listOf(v any) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		return t
	default:
		return []any{t}
	}
}
