package email

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/recipient-mailer/internal/common"
)

// Scenario enumerates the supported mock behaviours.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioTransient Scenario = "transient"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"
)

// Option customizes the behaviour of the mock provider at construction time.
type Option func(*MockProvider)

// WithLatency makes every send wait for d before answering. Negative values
// are clamped to zero.
func WithLatency(d time.Duration) Option {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithDefaultScenario configures the behaviour for recipients that have no
// explicit scenario.
func WithDefaultScenario(s Scenario) Option {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithRecipientScenario forces the scenario used for one recipient address.
func WithRecipientScenario(address string, s Scenario) Option {
	return func(p *MockProvider) {
		p.scenarios[strings.ToLower(strings.TrimSpace(address))] = s
	}
}

// WithConnectError makes Connect fail with err, simulating an unreachable relay.
func WithConnectError(err error) Option {
	return func(p *MockProvider) {
		p.connectErr = err
	}
}

// WithClock overrides the clock used for timestamps, useful for deterministic
// unit tests.
func WithClock(now func() time.Time) Option {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider implements Transport without any network traffic. It backs the
// dry-run mode and doubles as a recording transport in tests.
type MockProvider struct {
	logger          zerolog.Logger
	latency         time.Duration
	defaultScenario Scenario
	scenarios       map[string]Scenario
	connectErr      error
	now             func() time.Time

	connects  int
	connected bool
	closed    bool
	attempts  []*Message
	delivered []*Message
}

// NewMockProvider constructs a mock transport that accepts every message
// unless configured otherwise.
func NewMockProvider(logger zerolog.Logger, opts ...Option) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		scenarios:       make(map[string]Scenario),
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Connect simulates the connectivity check. It is a no-op once connected.
func (p *MockProvider) Connect(ctx context.Context) error {
	if p.connected {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return common.Wrap(common.ErrConnection, err)
	}
	p.connects++
	if p.connectErr != nil {
		return common.Wrap(common.ErrConnection, p.connectErr)
	}
	p.connected = true
	return nil
}

// Send simulates delivering msg according to the configured scenario.
func (p *MockProvider) Send(ctx context.Context, msg *Message) (*RawResponse, error) {
	if msg == nil {
		return nil, errors.New("email: message is required")
	}
	if !p.connected {
		return nil, errNotConnected
	}
	p.attempts = append(p.attempts, msg)

	if err := p.sleep(ctx, p.latency); err != nil {
		return nil, err
	}

	scenario := p.resolveScenario(msg.To)
	p.logger.Debug().
		Str("provider", "mock_smtp").
		Str("scenario", string(scenario)).
		Str("message_id", msg.ID).
		Msg("mock email provider invoked")

	switch scenario {
	case ScenarioPermanent:
		resp := p.baseResponse(msg, 550, "mock: mailbox unavailable")
		return resp, fmt.Errorf("mock: rcpt to %s: %w", msg.To, &textproto.Error{Code: resp.Code, Msg: resp.Body})
	case ScenarioTransient:
		resp := p.baseResponse(msg, 451, "mock: requested action aborted, try again later")
		return resp, fmt.Errorf("mock: data: %w", &textproto.Error{Code: resp.Code, Msg: resp.Body})
	case ScenarioTimeout:
		return nil, fmt.Errorf("mock: send: %w", context.DeadlineExceeded)
	default:
		p.delivered = append(p.delivered, msg)
		return p.baseResponse(msg, 250, "mock: message queued"), nil
	}
}

// Close marks the session as finished.
func (p *MockProvider) Close() error {
	p.connected = false
	p.closed = true
	return nil
}

// Connects reports how many times Connect was called.
func (p *MockProvider) Connects() int { return p.connects }

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool { return p.closed }

// Attempts returns every message passed to Send, in order.
func (p *MockProvider) Attempts() []*Message {
	return append([]*Message(nil), p.attempts...)
}

// Delivered returns the messages that were accepted, in order.
func (p *MockProvider) Delivered() []*Message {
	return append([]*Message(nil), p.delivered...)
}

func (p *MockProvider) resolveScenario(address string) Scenario {
	if s, ok := p.scenarios[strings.ToLower(strings.TrimSpace(address))]; ok {
		return s
	}
	return p.defaultScenario
}

func (p *MockProvider) baseResponse(msg *Message, code int, body string) *RawResponse {
	return &RawResponse{
		ID:        msg.ID,
		Code:      code,
		Body:      body,
		Timestamp: p.now(),
	}
}

func (p *MockProvider) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
