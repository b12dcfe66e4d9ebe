package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных шлюза в Redis
	RedisNamespace = "linc"
)

const (
	// RedisKeyLogsPrefix: аудит: linc:logs:{YYYY-MM-DD}:{correlation_id}
	RedisKeyLogsPrefix = RedisNamespace + ":logs:"
	// RedisKeyTokensPrefix: токены доступа: linc:tokens:{hash}
	RedisKeyTokensPrefix = RedisNamespace + ":tokens:"
)

// LogKey строит ключ записи аудита внутри дневной партиции.
func LogKey(date, correlationID string) string {
	return fmt.Sprintf("%s%s:%s", RedisKeyLogsPrefix, date, correlationID)
}

// LogDatePattern: шаблон SCAN для одной партиции.
func LogDatePattern(date string) string {
	return fmt.Sprintf("%s%s:*", RedisKeyLogsPrefix, date)
}

// TokenKey строит ключ токена по его хешу.
func TokenKey(hash string) string {
	return RedisKeyTokensPrefix + hash
}
