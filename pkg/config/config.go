// Package config loads service configuration from environment variables and
// converts it into the concrete dependencies the authentication core takes.
// Behavior like the bcrypt cost is always an explicit configuration value,
// never inferred from the runtime environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/clearauth/clearauth/pkg/hasher"
	"github.com/clearauth/clearauth/pkg/notification"
	"github.com/clearauth/clearauth/pkg/token"
)

// Config holds all environment-driven settings.
type Config struct {
	Addr string `env:"LISTEN_ADDR" env-default:":4000"`

	// BcryptPreset selects the hashing work factor: "fast" for tests and
	// CI, "secure" for production.
	BcryptPreset string `env:"BCRYPT_COST_PRESET" env-default:"secure"`

	RememberLifetime     time.Duration `env:"REMEMBER_TOKEN_LIFETIME" env-default:"336h"`
	ConfirmationLifetime time.Duration `env:"CONFIRMATION_TOKEN_LIFETIME" env-default:"24h"`

	// RememberTokenRotation opts into rotating the remember token on each
	// use. Off by default to preserve the classic reuse behavior.
	RememberTokenRotation bool `env:"REMEMBER_TOKEN_ROTATION" env-default:"false"`

	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"memory"`
	DatabaseURL     string `env:"DATABASE_URL"`

	// BaseURL is used to build confirmation and reset links in notices.
	BaseURL string `env:"BASE_URL" env-default:"http://localhost:4000"`

	Email EmailConfig
}

// EmailConfig holds SMTP settings for outbound notices. Leaving Host empty
// disables email delivery.
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST"`
	Port     int    `env:"EMAIL_PORT" env-default:"587"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"true"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"no-reply@localhost"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return cfg, nil
}

// ToHasherFactory converts the bcrypt preset into a hasher factory.
func (c Config) ToHasherFactory() (*hasher.Factory, error) {
	switch c.BcryptPreset {
	case "fast":
		return hasher.NewFactory(hasher.FastCost), nil
	case "secure":
		return hasher.NewFactory(hasher.SecureCost), nil
	default:
		return nil, fmt.Errorf("unknown bcrypt cost preset: %q (supported: fast, secure)", c.BcryptPreset)
	}
}

// ToTokenConfig converts the configured lifetimes into a token config.
func (c Config) ToTokenConfig() token.Config {
	return token.Config{
		RememberLifetime:     c.RememberLifetime,
		ConfirmationLifetime: c.ConfirmationLifetime,
	}
}

// ToSMTPConfig converts the email settings for the notifier.
func (c Config) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     c.Email.Host,
		Port:     c.Email.Port,
		TLS:      c.Email.TLS,
		Username: c.Email.Username,
		Password: c.Email.Password,
		From:     c.Email.From,
	}
}
