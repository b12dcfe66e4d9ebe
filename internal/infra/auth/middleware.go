package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// NewMiddleware отвечает 401 до любой диспетчеризации и записи в аудит.
func NewMiddleware(g *Gate, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractBearer(r.Header.Get("Authorization"))
			var client domain.Client
			if ok {
				client, ok = g.Authenticate(r.Context(), token)
			}
			if !ok {
				logger.Warn("auth failure", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.RoutedResponse{
		Status:    domain.StatusError,
		Message:   "Unauthorized",
		Timestamp: time.Now().UnixMilli(),
	})
}
