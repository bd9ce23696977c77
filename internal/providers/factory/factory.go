package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/recipient-mailer/internal/common"
	"github.com/example/recipient-mailer/internal/config"
	emailprovider "github.com/example/recipient-mailer/internal/providers/email"
)

// Email constructs the configured email transport, supporting SMTP and mock backends.
func Email(cfg config.ProviderConfig, logger zerolog.Logger) (emailprovider.Transport, error) {
	backend := normalize(cfg.EmailProvider, "smtp")
	switch backend {
	case "smtp":
		provider, err := emailprovider.NewSMTPProvider(cfg.SMTP, logger,
			emailprovider.WithSMTPHelloName(cfg.SMTP.HelloName),
		)
		if err != nil {
			return nil, fmt.Errorf("factory: smtp provider init: %w", err)
		}
		logger.Info().
			Str("backend", "smtp").
			Str("host", cfg.SMTP.Host).
			Int("port", cfg.SMTP.Port).
			Msg("email provider initialised")
		return provider, nil
	case "mock":
		provider := emailprovider.NewMockProvider(logger)
		logger.Info().
			Str("backend", "mock").
			Msg("email provider initialised")
		return provider, nil
	default:
		return nil, common.Wrap(common.ErrTransport, fmt.Errorf("factory: unsupported email provider backend %q", cfg.EmailProvider))
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
