package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: dispatch-service | migrate")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrUnknownMode     = errors.New("unknown mode")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode `ignored:"true"`

		Log       LogConfig
		HTTP      HTTPConfig
		WebSocket WebSocketConfig
		Storage   StorageConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		RabbitMQ  RabbitMQConfig
		Kafka     KafkaConfig
		Auth      Auth
		Dispatch  DispatchConfig
		Geocoder  GeocoderConfig
	}

	LogConfig struct {
		Level string `split_words:"true" default:"INFO"`
	}

	HTTPConfig struct {
		Port         string        `split_words:"true" default:"3000"`
		ReadTimeout  time.Duration `split_words:"true" default:"10s"`
		WriteTimeout time.Duration `split_words:"true" default:"15s"`
		IdleTimeout  time.Duration `split_words:"true" default:"60s"`
	}

	WebSocketConfig struct {
		AuthTimeout    time.Duration `split_words:"true" default:"5s"`
		PingInterval   time.Duration `split_words:"true" default:"30s"`
		PongWait       time.Duration `split_words:"true" default:"60s"`
		WriteWait      time.Duration `split_words:"true" default:"10s"`
		RequestTimeout time.Duration `split_words:"true" default:"10s"`
		MaxMessageSize int64         `split_words:"true" default:"8192"`
	}

	// StorageConfig selects the ride store and candidate finder backends.
	StorageConfig struct {
		Driver string `split_words:"true" default:"postgres"`
	}

	DatabaseConfig struct {
		Host     string `split_words:"true" default:"localhost"`
		Port     string `split_words:"true" default:"5432"`
		User     string `split_words:"true" default:"dispatch_user"`
		Password string `split_words:"true" default:"dispatch_pass"`
		Database string `split_words:"true" default:"dispatch_db"`

		MaxConns        int32         `split_words:"true" default:"20"`
		MinConns        int32         `split_words:"true" default:"2"`
		MaxConnLifetime time.Duration `split_words:"true" default:"30m"`
		MaxConnIdleTime time.Duration `split_words:"true" default:"5m"`
	}

	RedisConfig struct {
		Enabled  bool   `split_words:"true" default:"false"`
		Addr     string `split_words:"true" default:"localhost:6379"`
		Password string `split_words:"true"`
		DB       int    `split_words:"true" default:"0"`
		// PendingKey holds the GEO set of pending ride origins.
		PendingKey string `split_words:"true" default:"rides:pending"`
		DriversKey string `split_words:"true" default:"drivers:locations"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `split_words:"true" default:"false"`
		Host     string `split_words:"true" default:"localhost"`
		Port     string `split_words:"true" default:"5672"`
		User     string `split_words:"true" default:"guest"`
		Password string `split_words:"true" default:"guest"`
	}

	KafkaConfig struct {
		Enabled bool     `split_words:"true" default:"false"`
		Brokers []string `split_words:"true" default:"localhost:9092"`
		Topic   string   `split_words:"true" default:"ride-events"`
	}

	Auth struct {
		JWTSecret string        `split_words:"true" default:"supersecretkey"`
		TokenTTL  time.Duration `split_words:"true" default:"15m"`
	}

	DispatchConfig struct {
		SearchRadiusMeters   float64       `split_words:"true" default:"10000"`
		CandidateLimit       int           `split_words:"true" default:"5"`
		ClaimTimeout         time.Duration `split_words:"true" default:"10s"`
		DefaultPaymentMethod string        `split_words:"true" default:"CASH"`
		PendingTTL           time.Duration `split_words:"true" default:"15m"`
		SweepInterval        time.Duration `split_words:"true" default:"30s"`
	}

	GeocoderConfig struct {
		APIKey  string        `split_words:"true"`
		Timeout time.Duration `split_words:"true" default:"3s"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case types.DispatchService, types.MigrateMode:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
	if !logger.ValidateLogLevel(c.Log.Level) {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		return fmt.Errorf("invalid storage driver %q", c.Storage.Driver)
	}
	if !types.PaymentMethod(c.Dispatch.DefaultPaymentMethod).Valid() {
		return fmt.Errorf("invalid default payment method %q", c.Dispatch.DefaultPaymentMethod)
	}
	if c.Dispatch.SearchRadiusMeters <= 0 || c.Dispatch.CandidateLimit <= 0 {
		return errors.New("dispatch radius and candidate limit must be positive")
	}
	if c.Dispatch.ClaimTimeout <= 0 {
		return errors.New("claim timeout must be positive")
	}
	return nil
}
