package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/example/recipient-mailer/internal/common"
)

const (
	// DefaultRelayHost is the SMTP relay used when SMTP_HOST is not set.
	DefaultRelayHost = "smtp.gmail.com"
	// DefaultRelayPort is the STARTTLS submission port.
	DefaultRelayPort = 587
	// DefaultSubject is the fixed subject applied to every outbound message.
	DefaultSubject = "This is a test email"
)

// Config captures all runtime configuration for a mailer run. It is read once
// at startup and never mutated afterwards.
type Config struct {
	App         AppConfig
	Credentials Credentials
	Providers   ProviderConfig
	Mail        MailConfig
	Kafka       KafkaConfig
	Metrics     MetricsConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// Credentials holds the sender address and the SMTP secret. The address format
// is not validated here; the batch sender does that before the first send.
type Credentials struct {
	Sender string
	Secret string
}

// SMTPConfig stores the relay location and authentication for email delivery.
type SMTPConfig struct {
	Host           string
	Port           int
	User           string
	Pass           string
	HelloName      string
	TimeoutSeconds int
}

// ProviderConfig selects and configures the outbound transport.
type ProviderConfig struct {
	EmailProvider string
	SMTP          SMTPConfig
}

// MailConfig contains message level settings.
type MailConfig struct {
	Subject string
}

// KafkaConfig enables per-recipient status events when brokers are set.
type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

// Enabled reports whether status events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// MetricsConfig controls the prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string
}

var supportedEmailProviders = []string{"smtp", "mock"}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance. A .env file in the working
// directory is loaded when present; explicitly named env files must exist.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, common.Wrap(common.ErrConfiguration, fmt.Errorf("load env file: %w", err))
		}
	} else {
		_ = godotenv.Load()
	}

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Credentials.Sender = ldr.getString("SENDER", "", true)
	cfg.Credentials.Secret = ldr.getString("APP_PASSWORD", "", true)

	cfg.Providers.EmailProvider = strings.ToLower(ldr.getString("EMAIL_PROVIDER", "smtp", false))
	if !isSupported(cfg.Providers.EmailProvider) {
		ldr.addError(fmt.Sprintf("EMAIL_PROVIDER must be one of %s", strings.Join(supportedEmailProviders, ", ")))
	}

	cfg.Providers.SMTP.Host = ldr.getString("SMTP_HOST", DefaultRelayHost, false)
	cfg.Providers.SMTP.Port = ldr.getInt("SMTP_PORT", DefaultRelayPort, false)
	cfg.Providers.SMTP.TimeoutSeconds = ldr.getInt("SMTP_TIMEOUT_SECONDS", 30, false)
	cfg.Providers.SMTP.HelloName = ldr.getString("SMTP_HELO_NAME", "localhost", false)
	cfg.Providers.SMTP.User = cfg.Credentials.Sender
	cfg.Providers.SMTP.Pass = cfg.Credentials.Secret

	cfg.Mail.Subject = ldr.getString("MAIL_SUBJECT", DefaultSubject, false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.StatusTopic = ldr.getString("KAFKA_STATUS_TOPIC", "mailer.status", false)

	cfg.Metrics.TextfilePath = ldr.getString("METRICS_TEXTFILE", "", false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isSupported(provider string) bool {
	for _, p := range supportedEmailProviders {
		if p == provider {
			return true
		}
	}
	return false
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return common.Wrap(common.ErrConfiguration, errors.New(strings.Join(l.errs, "; ")))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val != "" {
			return val
		}
	}
	if required {
		l.addError(fmt.Sprintf("%s not found", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
