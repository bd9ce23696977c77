package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/recipient-mailer/internal/common"
	"github.com/example/recipient-mailer/internal/config"
)

const defaultSMTPTimeout = 30 * time.Second

var errNotConnected = errors.New("smtp provider: session is not connected")

// SMTPOption configures the behaviour of the SMTP provider.
type SMTPOption func(*SMTPProvider)

// WithSMTPTLSConfig overrides the TLS configuration used when negotiating
// STARTTLS. A nil config disables STARTTLS entirely.
func WithSMTPTLSConfig(cfg *tls.Config) SMTPOption {
	return func(p *SMTPProvider) {
		p.tlsConfig = cfg
	}
}

// WithSMTPDialer swaps the network dialer used to establish the session.
func WithSMTPDialer(d Dialer) SMTPOption {
	return func(p *SMTPProvider) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithSMTPHelloName customises the EHLO/HELO identity presented to the server.
func WithSMTPHelloName(name string) SMTPOption {
	return func(p *SMTPProvider) {
		if strings.TrimSpace(name) != "" {
			p.helloName = strings.TrimSpace(name)
		}
	}
}

// WithSMTPTimeout bounds the dial and every command exchanged with the relay.
func WithSMTPTimeout(d time.Duration) SMTPOption {
	return func(p *SMTPProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPProvider implements Transport on top of one long lived SMTP session.
// It is not safe for concurrent use; a run sends strictly sequentially.
type SMTPProvider struct {
	logger    zerolog.Logger
	host      string
	port      int
	auth      smtp.Auth
	tlsConfig *tls.Config
	dialer    Dialer
	now       func() time.Time
	helloName string
	timeout   time.Duration

	conn   net.Conn
	client *smtp.Client
}

// NewSMTPProvider builds the relay session object. It does not touch the
// network; call Connect to open and verify the session.
func NewSMTPProvider(cfg config.SMTPConfig, logger zerolog.Logger, opts ...SMTPOption) (*SMTPProvider, error) {
	host := strings.TrimSpace(cfg.Host)
	if err := validateHost(host); err != nil {
		return nil, relayConstructionError(err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, relayConstructionError(fmt.Errorf("invalid port %d", cfg.Port))
	}

	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	timeout := defaultSMTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	p := &SMTPProvider{
		logger:    logger,
		host:      host,
		port:      cfg.Port,
		dialer:    &net.Dialer{Timeout: timeout},
		now:       time.Now,
		helloName: "localhost",
		timeout:   timeout,
	}

	if strings.TrimSpace(cfg.User) != "" {
		p.auth = smtp.PlainAuth("", cfg.User, cfg.Pass, host)
	}

	p.tlsConfig = &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p, nil
}

// Connect dials the relay, upgrades the session with STARTTLS, authenticates
// and verifies the session with NOOP. It is a no-op once connected.
func (p *SMTPProvider) Connect(ctx context.Context) error {
	if p.client != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return common.Wrap(common.ErrConnection, err)
	}

	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return common.Wrap(common.ErrConnection, fmt.Errorf("smtp provider: dial %s: %w", addr, err))
	}

	if err := p.handshake(ctx, conn); err != nil {
		_ = conn.Close()
		return common.Wrap(common.ErrConnection, err)
	}

	p.logger.Info().
		Str("relay", addr).
		Bool("starttls", p.tlsConfig != nil).
		Bool("auth", p.auth != nil).
		Msg("smtp session established")

	return nil
}

func (p *SMTPProvider) handshake(ctx context.Context, conn net.Conn) error {
	stop := p.guard(ctx, conn)
	defer stop()

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		return fmt.Errorf("smtp provider: new client: %w", err)
	}

	if err := client.Hello(p.helloName); err != nil {
		_ = client.Close()
		return fmt.Errorf("smtp provider: hello: %w", err)
	}

	if cfg := p.sessionTLSConfig(); cfg != nil {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			_ = client.Close()
			return errors.New("smtp provider: relay does not advertise STARTTLS")
		}
		if err := client.StartTLS(cfg); err != nil {
			_ = client.Close()
			return fmt.Errorf("smtp provider: starttls: %w", err)
		}
	}

	if p.auth != nil {
		if ok, _ := client.Extension("AUTH"); !ok {
			_ = client.Close()
			return errors.New("smtp provider: relay does not advertise AUTH")
		}
		if err := client.Auth(p.auth); err != nil {
			_ = client.Close()
			return fmt.Errorf("smtp provider: auth: %w", err)
		}
	}

	if err := client.Noop(); err != nil {
		_ = client.Close()
		return fmt.Errorf("smtp provider: noop: %w", err)
	}

	p.conn = conn
	p.client = client
	return nil
}

// Send submits msg over the established session. A failed transaction is
// reset so the session stays usable for the next message.
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) (*RawResponse, error) {
	if msg == nil {
		return nil, errors.New("smtp provider: message is required")
	}
	if p.client == nil {
		return nil, errNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := p.guard(ctx, p.conn)
	defer stop()

	resp := &RawResponse{ID: msg.ID}

	if err := p.deliver(msg); err != nil {
		resp.Timestamp = p.now()
		code, body := classifySMTPError(err)
		resp.Code = code
		resp.Body = body
		if resp.Body == "" {
			resp.Body = err.Error()
		}
		if rerr := p.client.Reset(); rerr != nil {
			p.logger.Warn().Err(rerr).Msg("smtp provider: reset after failed transaction")
		}
		return resp, err
	}

	resp.Timestamp = p.now()
	resp.Code = 250
	resp.Body = "smtp: message accepted"
	return resp, nil
}

// deliver runs one MAIL/RCPT/DATA transaction. Once the relay accepts the
// data the message counts as sent, whatever happens to ctx afterwards.
func (p *SMTPProvider) deliver(msg *Message) error {
	if err := p.client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp provider: mail from: %w", err)
	}

	if err := p.client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp provider: rcpt to %s: %w", msg.To, err)
	}

	writer, err := p.client.Data()
	if err != nil {
		return fmt.Errorf("smtp provider: data: %w", err)
	}

	if _, err := writer.Write(msg.Bytes()); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp provider: data write: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp provider: data close: %w", err)
	}

	return nil
}

// Close ends the session with QUIT and releases the connection.
func (p *SMTPProvider) Close() error {
	if p.client == nil {
		return nil
	}
	client := p.client
	_ = p.conn.SetDeadline(time.Now().Add(p.timeout))
	p.client = nil
	p.conn = nil

	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		_ = client.Close()
		return fmt.Errorf("smtp provider: quit: %w", err)
	}
	return nil
}

// guard applies the command deadline to conn and closes it if ctx is
// cancelled before the returned stop function runs.
func (p *SMTPProvider) guard(ctx context.Context, conn net.Conn) func() {
	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	return func() {
		close(done)
		_ = conn.SetDeadline(time.Time{})
	}
}

func (p *SMTPProvider) sessionTLSConfig() *tls.Config {
	if p.tlsConfig == nil {
		return nil
	}
	cfg := p.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = p.host
	}
	return cfg
}

func validateHost(host string) error {
	if host == "" {
		return errors.New("host is required")
	}
	if strings.ContainsAny(host, " \t\r\n/:@") {
		return fmt.Errorf("malformed host %q", host)
	}
	return nil
}

func relayConstructionError(err error) error {
	return common.Wrap(common.ErrTransport, fmt.Errorf("smtp provider: relay construction failed: %w", err))
}
