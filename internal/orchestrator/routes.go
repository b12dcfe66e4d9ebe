package orchestrator

import "github.com/xela07ax/linc-gateway/internal/registry"

// Типы сообщений, которые умеет различать сервис извлечения
const (
	MessageClaimRequest       = "claim-request"
	MessageClaimStatus        = "claim-status"
	MessageClaimAppeal        = "claim-appeal"
	MessageEligibilityRequest = "eligibility-request"
	MessageCoverageCheck      = "coverage-check"
	MessageBenefitsInquiry    = "benefits-inquiry"
	MessagePatientRecord      = "patient-record"
	MessagePatientLink        = "patient-link"
	MessagePolicyInquiry      = "policy-inquiry"
	MessageAuthorization      = "authorization-request"
	MessageDataReport         = "data-report"
)

// Routes: неизменяемые таблицы маршрутизации бандлов: тип сообщения -> агент и (агент, тип) -> задача.
type Routes struct {
	Agents map[string]string
	Tasks  map[string]map[string]string
	// Fallback получает все нераспознанные типы. Это не ошибка, а штатный маршрут.
	Fallback    string
	DefaultTask string
}

// DefaultRoutes: таблицы по умолчанию
func DefaultRoutes() Routes {
	return Routes{
		Agents: map[string]string{
			MessageClaimRequest:       registry.ClaimLinc,
			MessageClaimStatus:        registry.ClaimLinc,
			MessageClaimAppeal:        registry.ClaimLinc,
			MessageEligibilityRequest: registry.EligiLinc,
			MessageCoverageCheck:      registry.EligiLinc,
			MessageBenefitsInquiry:    registry.EligiLinc,
			MessagePatientRecord:      registry.RecordLinc,
			MessagePatientLink:        registry.RecordLinc,
			MessagePolicyInquiry:      registry.PolicyLinc,
			MessageAuthorization:      registry.AuthLinc,
			MessageDataReport:         registry.DataLinc,
		},
		Tasks: map[string]map[string]string{
			registry.ClaimLinc: {
				MessageClaimRequest: "submit",
				MessageClaimStatus:  "status",
				MessageClaimAppeal:  "appeal",
			},
			registry.EligiLinc: {
				MessageEligibilityRequest: "verify",
				MessageCoverageCheck:      "check_coverage",
				MessageBenefitsInquiry:    "benefits",
			},
			registry.RecordLinc: {
				MessagePatientRecord: "store",
				MessagePatientLink:   "link",
			},
			registry.PolicyLinc: {
				MessagePolicyInquiry: "lookup",
			},
			registry.DataLinc: {
				MessageDataReport: "report",
			},
		},
		Fallback:    registry.RecordLinc,
		DefaultTask: registry.DefaultTaskName,
	}
}

// AgentFor возвращает агента для типа сообщения, для неизвестного типа: Fallback.
func (r Routes) AgentFor(messageType string) string {
	if agent, ok := r.Agents[messageType]; ok {
		return agent
	}
	return r.Fallback
}

// TaskFor: вложенный поиск (агент, тип); без соответствия: DefaultTask.
func (r Routes) TaskFor(agent, messageType string) string {
	if byType, ok := r.Tasks[agent]; ok {
		if task, ok := byType[messageType]; ok {
			return task
		}
	}
	return r.DefaultTask
}
