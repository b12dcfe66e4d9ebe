package registry

// Имена агентов платформы
const (
	AuthLinc        = "authlinc"
	ClaimLinc       = "claimlinc"
	EligiLinc       = "eligilinc"
	RecordLinc      = "recordlinc"
	PolicyLinc      = "policylinc"
	DataLinc        = "datalinc"
	DefaultTaskName = "process"
)

// DefaultTables: таблицы по умолчанию. Задача "process" есть у каждого агента:
// на неё падает маршрутизация оркестратора, когда конкретного соответствия нет.
func DefaultTables() Tables {
	return Tables{
		Endpoints: map[Environment]map[string]string{
			Development: {
				AuthLinc:   "http://localhost:8101/api/authlinc",
				ClaimLinc:  "http://localhost:8102/api/claimlinc",
				EligiLinc:  "http://localhost:8103/api/eligilinc",
				RecordLinc: "http://localhost:8104/api/recordlinc",
				PolicyLinc: "http://localhost:8105/api/policylinc",
				DataLinc:   "http://localhost:8106/api/datalinc",
			},
			Production: {
				AuthLinc:   "http://authlinc.agents.svc.cluster.local/api/authlinc",
				ClaimLinc:  "http://claimlinc.agents.svc.cluster.local/api/claimlinc",
				EligiLinc:  "http://eligilinc.agents.svc.cluster.local/api/eligilinc",
				RecordLinc: "http://recordlinc.agents.svc.cluster.local/api/recordlinc",
				PolicyLinc: "http://policylinc.agents.svc.cluster.local/api/policylinc",
				DataLinc:   "http://datalinc.agents.svc.cluster.local/api/datalinc",
			},
		},
		Tasks: map[string][]string{
			AuthLinc:   {"login", "logout", "verify", "refresh", DefaultTaskName},
			ClaimLinc:  {"submit", "status", "validate", "appeal", DefaultTaskName},
			EligiLinc:  {"verify", "check_coverage", "benefits", DefaultTaskName},
			RecordLinc: {"fetch", "store", "link", "match", DefaultTaskName},
			PolicyLinc: {"lookup", "validate", "renew", DefaultTaskName},
			DataLinc:   {"ingest", "export", "report", DefaultTaskName},
		},
	}
}
