// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Mongo    MongoConfig   `yaml:"mongo"`
	OAuth    OAuthConfig   `yaml:"oauth"`
	RAG      RAGConfig     `yaml:"rag"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"60s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера и параметры cookie.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
	// CookieSecure выставляет атрибут Secure у auth-cookie. В local удобно выключать.
	CookieSecure bool `yaml:"cookie_secure" env:"HTTP_COOKIE_SECURE" env-default:"true"`
	// OpsPort — отдельный порт для /livez, /healthz и /metrics.
	OpsPort string `yaml:"ops_port" env:"HTTP_OPS_PORT" env-default:"8081"`
}

// Addr возвращает адрес API в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// OpsAddr возвращает адрес служебного сервера в формате host:port.
func (h HTTPConfig) OpsAddr() string {
	return net.JoinHostPort(h.Host, h.OpsPort)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"risk-assistant"`
	// JanitorPeriod — период очистки in-memory списка отозванных jti.
	JanitorPeriod time.Duration `yaml:"janitor_period" env:"JANITOR_PERIOD" env-default:"30m"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL    string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	MigrateOnStart bool   `yaml:"migrate_on_start" env:"DB_MIGRATE_ON_START" env-default:"true"`
}

// RedisConfig — общий список отозванных токенов. Пустой URL — хранилище в памяти.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"auth:revoked:"`
}

// MongoConfig — хранилище истории. Пустой URL отключает историю.
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL"`
}

// OAuthConfig — вход через Google. Пустой client_id отключает OAuth.
type OAuthConfig struct {
	GoogleClientID     string `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL        string `yaml:"redirect_url" env:"GOOGLE_REDIRECT_URL"`
}

// Enabled сообщает, сконфигурирован ли вход через Google.
func (o OAuthConfig) Enabled() bool {
	return o.GoogleClientID != ""
}

// RAGConfig — параметры RAG-пайплайна (OpenAI + OpenSearch).
type RAGConfig struct {
	OpenAIKey      string   `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string   `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	EmbeddingModel string   `yaml:"embedding_model" env:"RAG_EMBEDDING_MODEL" env-default:"text-embedding-3-large"`
	ChatModel      string   `yaml:"chat_model" env:"RAG_CHAT_MODEL" env-default:"gpt-4-1106-preview"`
	Addresses      []string `yaml:"opensearch_addresses" env:"OPENSEARCH_ADDRESSES" env-separator:","`
	Username       string   `yaml:"opensearch_username" env:"OPENSEARCH_USERNAME"`
	Password       string   `yaml:"opensearch_password" env:"OPENSEARCH_PASSWORD"`
	Index          string   `yaml:"index" env:"RAG_INDEX" env-default:"hazard-reports"`
	VectorField    string   `yaml:"vector_field" env:"RAG_VECTOR_FIELD" env-default:"contentVector"`
	TopK           int      `yaml:"top_k" env:"RAG_TOP_K" env-default:"10"`
}

// Enabled сообщает, достаточно ли параметров для запуска RAG.
func (r RAGConfig) Enabled() bool {
	return r.OpenAIKey != "" && len(r.Addresses) > 0
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
