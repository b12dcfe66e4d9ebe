package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config: корневая структура конфигурации шлюза и оркестратора.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Registry     RegistryConfig     `mapstructure:"registry"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// 0: лимитер входящего трафика выключен
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Addr собирает адрес для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к PostgreSQL (хранилище корреляций).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (аудит и токены).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig: путь к публичному ключу RS256. Если ключа нет, токен проверяется только по хранилищу.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// GatewayConfig содержит настройки клиентского шлюза.
type GatewayConfig struct {
	Environment    string        `mapstructure:"environment"` // development | production
	EchoMode       bool          `mapstructure:"echo_mode"`
	ForwardTimeout time.Duration `mapstructure:"forward_timeout"`

	// Настройки Circuit Breaker для исходящих вызовов агентов
	CBMaxRequests int           `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBMaxFailures int           `mapstructure:"cb_max_failures"`
}

// OrchestratorConfig содержит адрес сервиса извлечения данных из бандлов.
type OrchestratorConfig struct {
	ExtractionURL     string        `mapstructure:"extraction_url"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
}

// AuditConfig управляет буфером записи и ретеншном аудита.
type AuditConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	RetentionDays int           `mapstructure:"retention_days"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	QueryLimit    int           `mapstructure:"query_limit"`
}

// Retention переводит дни ретеншна в TTL ключа.
func (a AuditConfig) Retention() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

// RegistryConfig позволяет перекрыть адреса агентов: endpoints.<env>.<agent> = url
type RegistryConfig struct {
	Endpoints map[string]map[string]string `mapstructure:"endpoints"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV: GATEWAY_ECHO_MODE=true перекроет gateway.echo_mode
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет: работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// PEM-ключ может прийти напрямую в ENV (для Docker/K8s)
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	return &cfg, nil
}

// Validate отсекает конфигурации, с которыми шлюз не сможет корректно работать.
func (c *Config) Validate() error {
	switch c.Gateway.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("config: unknown gateway.environment %q", c.Gateway.Environment)
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("config: audit.retention_days must be positive, got %d", c.Audit.RetentionDays)
	}
	if c.Gateway.ForwardTimeout <= 0 || c.Orchestrator.ExtractionTimeout <= 0 {
		return errors.New("config: outbound timeouts must be positive")
	}
	return nil
}

// setDefaults регистрирует каждый ключ: AutomaticEnv при Unmarshal видит только известные viper ключи,
// поэтому ключи без осмысленного значения тоже получают пустой дефолт.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.public_key_path", "")
	v.SetDefault("gateway.environment", "development")
	v.SetDefault("gateway.echo_mode", false)
	v.SetDefault("gateway.forward_timeout", 5*time.Second)
	v.SetDefault("gateway.cb_max_requests", 3)
	v.SetDefault("gateway.cb_interval", 5*time.Second)
	v.SetDefault("gateway.cb_timeout", 30*time.Second)
	v.SetDefault("gateway.cb_max_failures", 5)
	v.SetDefault("orchestrator.extraction_url", "http://localhost:8090")
	v.SetDefault("orchestrator.extraction_timeout", 5*time.Second)
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.flush_interval", 500*time.Millisecond)
	v.SetDefault("audit.retention_days", 30)
	v.SetDefault("audit.sweep_interval", time.Hour)
	v.SetDefault("audit.query_limit", 1000)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
