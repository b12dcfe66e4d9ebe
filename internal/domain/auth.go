package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims: полезная нагрузка токена, выпущенного внешним сервисом выдачи.
// Шлюз токены не выпускает, только проверяет подпись и наличие в хранилище.
type CustomClaims struct {
	ClientID string `json:"client_id"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Client: кто прошел авторизацию. ID из хранилища токенов, TenantID из подписанного токена (если есть).
type Client struct {
	ID       string
	TenantID string
}
