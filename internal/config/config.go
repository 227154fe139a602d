package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every loading or validation failure
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Environment string         `mapstructure:"environment" validate:"oneof=development production test"`
	Server      ServerConfig   `mapstructure:"server"`
	Twilio      TwilioConfig   `mapstructure:"twilio"`
	Gemini      GeminiConfig   `mapstructure:"gemini"`
	Catalog     CatalogConfig  `mapstructure:"catalog"`
	Database    DatabaseConfig `mapstructure:"db"`
	Bot         BotConfig      `mapstructure:"bot"`
	Log         LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port" validate:"required,numeric"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
	AsyncWebhook  bool   `mapstructure:"async_webhook"`
}

type TwilioConfig struct {
	AccountSID        string `mapstructure:"account_sid"`
	AuthToken         string `mapstructure:"auth_token"`
	WhatsAppFrom      string `mapstructure:"whatsapp_from"` // "whatsapp:+14155238886"
	ButtonsContentSID string `mapstructure:"buttons_content_sid"`
	ListContentSID    string `mapstructure:"list_content_sid"`
	ValidateSignature bool   `mapstructure:"validate_signature"`
}

// Configured reports whether real sending is possible
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppFrom != ""
}

type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=1s,max=2m"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=5"`
}

type CatalogConfig struct {
	Source   string        `mapstructure:"source" validate:"oneof=static database"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

type DatabaseConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port" validate:"min=1,max=65535"`
	User                   string `mapstructure:"user"`
	Pass                   string `mapstructure:"pass"`
	Name                   string `mapstructure:"name"`
	InstanceConnectionName string `mapstructure:"instance_connection_name"`
}

type BotConfig struct {
	DefaultCity    string        `mapstructure:"default_city" validate:"required"`
	DeliveryDelay  time.Duration `mapstructure:"delivery_delay" validate:"min=0,max=30s"`
	MaxPlanPlaces  int           `mapstructure:"max_plan_places" validate:"min=1,max=15"`
	MoreBatchSize  int           `mapstructure:"more_batch_size" validate:"min=1,max=10"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" validate:"min=1m"`
	CleanupEvery   time.Duration `mapstructure:"cleanup_every" validate:"min=10s"`
	CodeCategories []string      `mapstructure:"code_categories"`
	CodesDir       string        `mapstructure:"codes_dir" validate:"required"`
	CodeBaseURL    string        `mapstructure:"code_base_url" validate:"required,url"`
	MediaDir       string        `mapstructure:"media_dir" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("server.async_webhook", true)

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.whatsapp_from", "")
	v.SetDefault("twilio.buttons_content_sid", "")
	v.SetDefault("twilio.list_content_sid", "")
	v.SetDefault("twilio.validate_signature", false)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", 15*time.Second)
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.max_retries", 1)

	v.SetDefault("catalog.source", "static")
	v.SetDefault("catalog.cache_ttl", 10*time.Minute)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.name", "tripguide")
	v.SetDefault("db.instance_connection_name", "")

	v.SetDefault("bot.default_city", "Canelones")
	v.SetDefault("bot.delivery_delay", 1500*time.Millisecond)
	v.SetDefault("bot.max_plan_places", 15)
	v.SetDefault("bot.more_batch_size", 1)
	v.SetDefault("bot.session_ttl", 30*time.Minute)
	v.SetDefault("bot.cleanup_every", 5*time.Minute)
	v.SetDefault("bot.code_categories", []string{"restaurants", "shops", "museum"})
	v.SetDefault("bot.codes_dir", "./codes")
	v.SetDefault("bot.code_base_url", "https://agencia-qr.vercel.app")
	v.SetDefault("bot.media_dir", "./media")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads, in increasing priority: defaults, config.yaml, .env, environment.
// Environment keys are the dotted key upper-cased with "_", e.g. TWILIO_AUTH_TOKEN.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the existing Cloud Run deployment
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("db.instance_connection_name", "DB_INSTANCE_CONNECTION_NAME", "INSTANCE_CONNECTION_NAME")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

// Validate applies struct rules plus the cross-section ones
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Catalog.Source == "database" && c.Database.Name == "" {
		return errors.New("db.name is required when catalog.source is database")
	}
	if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" {
		return errors.New("twilio.auth_token is required to validate webhook signatures")
	}
	return nil
}
