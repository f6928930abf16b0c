package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/dbchat-backend/internal/data/db"
	"github.com/yungbote/dbchat-backend/internal/observability"
	"github.com/yungbote/dbchat-backend/internal/platform/envutil"
	"github.com/yungbote/dbchat-backend/internal/services"
)

const defaultConfigPath = "./config/config.yaml"

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DBConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	SQLitePath   string `yaml:"sqlite_path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ChatConfig struct {
	MessageMaxLength  int           `yaml:"message_max_length"`
	PaginationLimit   int           `yaml:"pagination_limit"`
	PaginationMax     int           `yaml:"pagination_max"`
	PollTimeout       time.Duration `yaml:"poll_timeout"`
	PollCheckInterval time.Duration `yaml:"poll_check_interval"`
	PollMinRequery    time.Duration `yaml:"poll_min_requery"`
	PollBatchLimit    int           `yaml:"poll_batch_limit"`

	// Requests per user per minute; 0 disables the limiter.
	PollRateLimit    int `yaml:"poll_rate_limit"`
	MessageRateLimit int `yaml:"message_rate_limit"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	LogMode        string        `yaml:"log_mode"`
	Environment    string        `yaml:"environment"`
	JWTSecretKey   string        `yaml:"jwt_secret_key"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`

	HTTP  HTTPConfig  `yaml:"http"`
	DB    DBConfig    `yaml:"db"`
	Redis RedisConfig `yaml:"redis"`
	Chat  ChatConfig  `yaml:"chat"`
	Otel  OtelConfig  `yaml:"otel"`
}

func DefaultConfig() Config {
	chat := services.DefaultChatConfig()
	return Config{
		LogMode:        "development",
		Environment:    "development",
		JWTSecretKey:   "defaultsecret",
		AccessTokenTTL: time.Hour,
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		DB: DBConfig{
			Driver:     db.DriverPostgres,
			Host:       "localhost",
			Port:       "5432",
			User:       "postgres",
			Name:       "dbchat",
			SSLMode:    "disable",
			SQLitePath: "dbchat.sqlite",
		},
		Chat: ChatConfig{
			MessageMaxLength:  chat.MessageMaxLength,
			PaginationLimit:   chat.PaginationLimit,
			PaginationMax:     chat.PaginationMax,
			PollTimeout:       chat.PollTimeout,
			PollCheckInterval: chat.PollCheckInterval,
			PollMinRequery:    chat.PollMinRequery,
			PollBatchLimit:    chat.PollBatchLimit,
			PollRateLimit:     120,
			MessageRateLimit:  60,
		},
		Otel: OtelConfig{
			ServiceName: "dbchat",
			SampleRatio: 1,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file and the environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path := envutil.String("DBCHAT_CONFIG_PATH", "")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	if err := loadYAML(&cfg, path, explicit); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(cfg *Config, path string, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.AccessTokenTTL = envutil.Seconds("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)

	cfg.HTTP.Addr = envutil.String("DBCHAT_HTTP_ADDR", cfg.HTTP.Addr)
	if raw := envutil.String("DBCHAT_CORS_ORIGINS", ""); raw != "" {
		cfg.HTTP.CORSOrigins = splitList(raw)
	}

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("DBCHAT_SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.MaxOpenConns = envutil.Int("POSTGRES_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = envutil.Int("POSTGRES_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Chat.MessageMaxLength = envutil.Int("DBCHAT_MESSAGE_MAX_LENGTH", cfg.Chat.MessageMaxLength)
	cfg.Chat.PaginationLimit = envutil.Int("DBCHAT_MESSAGE_PAGINATION_LIMIT", cfg.Chat.PaginationLimit)
	cfg.Chat.PaginationMax = envutil.Int("DBCHAT_MESSAGE_PAGINATION_MAX", cfg.Chat.PaginationMax)
	cfg.Chat.PollTimeout = envutil.Seconds("DBCHAT_POLL_TIMEOUT", cfg.Chat.PollTimeout)
	cfg.Chat.PollCheckInterval = envutil.Millis("DBCHAT_POLL_CHECK_INTERVAL", cfg.Chat.PollCheckInterval)
	cfg.Chat.PollMinRequery = envutil.Millis("DBCHAT_POLL_MIN_REQUERY", cfg.Chat.PollMinRequery)
	cfg.Chat.PollBatchLimit = envutil.Int("DBCHAT_POLL_BATCH_LIMIT", cfg.Chat.PollBatchLimit)
	cfg.Chat.PollRateLimit = envutil.Int("DBCHAT_POLL_RATE_LIMIT", cfg.Chat.PollRateLimit)
	cfg.Chat.MessageRateLimit = envutil.Int("DBCHAT_MESSAGE_RATE_LIMIT", cfg.Chat.MessageRateLimit)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
}

func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("db.driver must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, c.DB.Driver))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		errs = append(errs, errors.New("jwt_secret_key is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access_token_ttl must be positive"))
	}

	ch := c.Chat
	if ch.MessageMaxLength <= 0 {
		errs = append(errs, errors.New("chat.message_max_length must be positive"))
	}
	if ch.PaginationLimit <= 0 || ch.PaginationMax <= 0 {
		errs = append(errs, errors.New("chat pagination limits must be positive"))
	} else if ch.PaginationLimit > ch.PaginationMax {
		errs = append(errs, errors.New("chat.pagination_limit exceeds chat.pagination_max"))
	}
	if ch.PollTimeout <= 0 {
		errs = append(errs, errors.New("chat.poll_timeout must be positive"))
	}
	if ch.PollCheckInterval <= 0 {
		errs = append(errs, errors.New("chat.poll_check_interval must be positive"))
	}
	if ch.PollMinRequery < 0 || ch.PollBatchLimit < 0 || ch.PollRateLimit < 0 || ch.MessageRateLimit < 0 {
		errs = append(errs, errors.New("chat poll and rate settings must not be negative"))
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		errs = append(errs, errors.New("otel.sample_ratio must be within [0,1]"))
	}
	return errors.Join(errs...)
}

func (c Config) ChatService() services.ChatConfig {
	return services.ChatConfig{
		MessageMaxLength:  c.Chat.MessageMaxLength,
		PaginationLimit:   c.Chat.PaginationLimit,
		PaginationMax:     c.Chat.PaginationMax,
		PollTimeout:       c.Chat.PollTimeout,
		PollCheckInterval: c.Chat.PollCheckInterval,
		PollMinRequery:    c.Chat.PollMinRequery,
		PollBatchLimit:    c.Chat.PollBatchLimit,
	}
}

func (c Config) DBOptions() db.Options {
	return db.Options{
		Driver:       c.DB.Driver,
		Host:         c.DB.Host,
		Port:         c.DB.Port,
		User:         c.DB.User,
		Password:     c.DB.Password,
		Name:         c.DB.Name,
		SSLMode:      c.DB.SSLMode,
		SQLitePath:   c.DB.SQLitePath,
		MaxOpenConns: c.DB.MaxOpenConns,
		MaxIdleConns: c.DB.MaxIdleConns,
	}
}

func (c Config) OtelOptions(version string) observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Environment,
		Version:     version,
		Endpoint:    c.Otel.Endpoint,
		Headers:     observability.ParseHeaders(c.Otel.Headers),
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
