package audit

import (
	"fmt"
	"regexp"
	"time"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// DateLayout: формат дневной партиции
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LogEntry: запись аудита по каждому маршрутизированному запросу. После записи не меняется.
type LogEntry struct {
	Timestamp     int64          `json:"timestamp"`      // unix millis
	CorrelationID string         `json:"correlation_id"` // сквозной ID запроса
	Agent         string         `json:"agent"`
	Task          string         `json:"task"`
	Outcome       domain.Outcome `json:"outcome"`
	DurationMs    int64          `json:"duration_ms"`
	ClientAddress string         `json:"client_address,omitempty"`
}

// Time возвращает момент записи в UTC.
func (e LogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// DatePartition: партиция YYYY-MM-DD по времени записи (UTC).
func (e LogEntry) DatePartition() string {
	return e.Time().Format(DateLayout)
}

// ParseDate проверяет дату партиции: сначала по шаблону, затем по календарю.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: invalid date format %q, expected YYYY-MM-DD", domain.ErrBadRequest, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrBadRequest, s)
	}
	return t, nil
}
