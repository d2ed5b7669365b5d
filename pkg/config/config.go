package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CONCIERGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Agent     AgentConfig
	Relay     RelayConfig
	Widget    WidgetConfig
	Redis     RedisConfig
	DB        DBConfig
	Postcodes PostcodesConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONCIERGE_APP_ENV" required:"true"`
	Port         string `envconfig:"CONCIERGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CONCIERGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONCIERGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AgentConfig points the relay at the automation vendor that runs the
// retailer-site checkout.
type AgentConfig struct {
	Endpoint  string        `envconfig:"CONCIERGE_AGENT_ENDPOINT" required:"true"`
	APIKey    string        `envconfig:"CONCIERGE_AGENT_API_KEY" required:"true"`
	SecretKey string        `envconfig:"CONCIERGE_AGENT_SECRET_KEY" required:"true"`
	Timeout   time.Duration `envconfig:"CONCIERGE_AGENT_TIMEOUT" default:"30s"`
}

type RelayConfig struct {
	AllowOrigin string `envconfig:"CONCIERGE_RELAY_ALLOW_ORIGIN" default:"http://localhost:3000"`
}

// WidgetConfig carries the embedding-side settings: where the relay lives and
// the tokenization-provider identifiers handed to the card input.
type WidgetConfig struct {
	BackendURL       string        `envconfig:"CONCIERGE_WIDGET_BACKEND_URL"`
	EvervaultTeamID  string        `envconfig:"CONCIERGE_WIDGET_EVERVAULT_TEAM_ID"`
	EvervaultAppID   string        `envconfig:"CONCIERGE_WIDGET_EVERVAULT_APP_ID"`
	InteractionDelay time.Duration `envconfig:"CONCIERGE_WIDGET_INTERACTION_DELAY" default:"2s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONCIERGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CONCIERGE_REDIS_ADDR"`
	Password     string        `envconfig:"CONCIERGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONCIERGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONCIERGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONCIERGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONCIERGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONCIERGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONCIERGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	DSN       string `envconfig:"CONCIERGE_DB_DSN"`
	UseSQLite bool   `envconfig:"CONCIERGE_USE_SQLITE" default:"false"`

	AutoMigrate bool `envconfig:"CONCIERGE_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"CONCIERGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONCIERGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONCIERGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONCIERGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type PostcodesConfig struct {
	BaseURL string        `envconfig:"CONCIERGE_POSTCODES_BASE_URL" default:"https://api.postcodes.io"`
	Timeout time.Duration `envconfig:"CONCIERGE_POSTCODES_TIMEOUT" default:"10s"`
}
