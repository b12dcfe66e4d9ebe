package engine

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/linc-gateway/internal/connectors"
	"github.com/xela07ax/linc-gateway/internal/domain"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

// CorrelationMiddleware переносит X-Correlation-ID входящего запроса в контекст.
// Генерация, если его нет, остается за обработчиком: id из тела имеет приоритет.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(connectors.HeaderCorrelationID); id != "" {
			r = r.WithContext(WithCorrelationID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext безопасно достает ID, пустая строка если его нет.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// RateLimitMiddleware ограничивает входящий поток. rps <= 0 выключает лимит.
// Запрос сверх лимита сразу получает 429, без ожидания.
func RateLimitMiddleware(rps float64, burst int, metrics *Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if metrics != nil {
					metrics.RejectedTotal.WithLabelValues("rate_limited").Inc()
				}
				logger.Debug("rate limit exceeded", zap.String("remote", r.RemoteAddr))
				WriteJSON(w, http.StatusTooManyRequests, domain.RoutedResponse{
					Status:    domain.StatusError,
					Message:   "Too many requests",
					Timestamp: time.Now().UnixMilli(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
