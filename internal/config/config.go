package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CHAT"

// Config is read from CHAT_* environment variables.
type Config struct {
	Port     string `envconfig:"PORT" default:"8083"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"9083"`

	DBDSN        string `envconfig:"DB_DSN"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	EventSource  string `envconfig:"EVENT_SOURCE" default:"channel"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"meeting.events"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"meeting-chat.messages"`

	DispatchWorkers int           `envconfig:"DISPATCH_WORKERS" default:"16"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"meeting-chat"`
	Environment  string `envconfig:"ENVIRONMENT" default:"dev"`
	DebugRoutes  bool   `envconfig:"DEBUG_ROUTES" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend combinations.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.EventSource {
	case "channel":
	case "postgres":
		if c.StoreBackend != "postgres" {
			return fmt.Errorf("event source postgres requires store backend postgres")
		}
	case "amqp":
		if c.AMQPURL == "" {
			return fmt.Errorf("event source amqp requires CHAT_AMQP_URL")
		}
	default:
		return fmt.Errorf("unknown event source %q", c.EventSource)
	}

	if c.StoreBackend == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("store backend postgres requires CHAT_DB_DSN")
	}
	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("dispatch workers must be positive, got %d", c.DispatchWorkers)
	}
	return nil
}
