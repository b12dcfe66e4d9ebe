package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// Gate: проверка bearer-токена до любой маршрутизации. Работает по принципу fail closed.
type Gate struct {
	store     TokenStore
	signature SignatureValidator // nil: проверка подписи выключена
	logger    *zap.Logger
}

func NewGate(store TokenStore, signature SignatureValidator, logger *zap.Logger) *Gate {
	return &Gate{
		store:     store,
		signature: signature,
		logger:    logger.Named("auth-gate"),
	}
}

// ExtractBearer достает токен из заголовка Authorization.
func ExtractBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// Authenticate возвращает клиента только если токен есть в хранилище
// (и подпись валидна, если ключ задан). client_id из подписи обязан совпасть с выданным.
func (g *Gate) Authenticate(ctx context.Context, credential string) (domain.Client, bool) {
	if credential == "" {
		return domain.Client{}, false
	}

	var claims *domain.CustomClaims
	if g.signature != nil {
		var err error
		if claims, err = g.signature.VerifyToken(credential); err != nil {
			g.logger.Debug("token signature rejected", zap.Error(err))
			return domain.Client{}, false
		}
	}

	clientID, found, err := g.store.Lookup(ctx, credential)
	if err != nil {
		// хранилище недоступно: отказываем
		g.logger.Warn("token store lookup failed", zap.Error(err))
		return domain.Client{}, false
	}
	if !found {
		return domain.Client{}, false
	}

	client := domain.Client{ID: clientID}
	if claims != nil {
		if claims.ClientID != "" && clientID != "" && claims.ClientID != clientID {
			g.logger.Warn("token client mismatch",
				zap.String("stored_client", clientID),
				zap.String("claimed_client", claims.ClientID))
			return domain.Client{}, false
		}
		if client.ID == "" {
			client.ID = claims.ClientID
		}
		client.TenantID = claims.TenantID
	}
	return client, true
}

// Authorize: Authenticate без данных о клиенте.
func (g *Gate) Authorize(ctx context.Context, credential string) bool {
	_, ok := g.Authenticate(ctx, credential)
	return ok
}

type clientKey struct{}

// WithClient кладет авторизованного клиента в контекст запроса.
func WithClient(ctx context.Context, c domain.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext возвращает клиента или пустое значение для неавторизованных маршрутов.
func ClientFromContext(ctx context.Context) domain.Client {
	c, _ := ctx.Value(clientKey{}).(domain.Client)
	return c
}
