package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/recipient-mailer/internal/common"
	"github.com/example/recipient-mailer/internal/config"
	"github.com/example/recipient-mailer/internal/metrics"
	"github.com/example/recipient-mailer/internal/models"
	emailprovider "github.com/example/recipient-mailer/internal/providers/email"
	"github.com/example/recipient-mailer/internal/util"
)

// Config contains the message level settings shared by every recipient.
type Config struct {
	Sender  string
	Subject string
}

// StatusPublisher publishes the outcome of each recipient.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event models.StatusEvent) error
}

// Dependencies collects the runtime collaborators required by the sender.
type Dependencies[R any] struct {
	Transport       emailprovider.Transport
	Extractor       Extractor[R]
	StatusPublisher StatusPublisher
	Metrics         *metrics.Recorder
	Progress        io.Writer
	Logger          zerolog.Logger
	Now             func() time.Time
	NewID           func() string
}

// Sender walks a recipient list in order and submits one message per
// recipient over a single shared transport session.
type Sender[R any] struct {
	cfg             Config
	transport       emailprovider.Transport
	extractor       Extractor[R]
	statusPublisher StatusPublisher
	metrics         *metrics.Recorder
	progress        io.Writer
	failureLine     *color.Color
	logger          zerolog.Logger
	now             func() time.Time
	newID           func() string
}

// New constructs a batch sender. The transport and the extractor are
// required; everything else has a default.
func New[R any](cfg Config, deps Dependencies[R]) (*Sender[R], error) {
	if deps.Transport == nil {
		return nil, errors.New("batch: transport dependency is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("batch: extractor dependency is required")
	}

	if cfg.Subject == "" {
		cfg.Subject = config.DefaultSubject
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "batch_sender").Logger()

	progress := deps.Progress
	if progress == nil {
		progress = io.Discard
	}

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Sender[R]{
		cfg:             cfg,
		transport:       deps.Transport,
		extractor:       deps.Extractor,
		statusPublisher: deps.StatusPublisher,
		metrics:         deps.Metrics,
		progress:        progress,
		failureLine:     color.New(color.FgRed),
		logger:          logger,
		now:             nowFunc,
		newID:           newID,
	}, nil
}

// Run performs the connectivity check and then processes every record in
// order. A connectivity failure is returned before any send. Per-recipient
// failures never stop the loop; they are collected in the report, and
// Report.Err reports them as one error. Cancelling ctx stops the loop before
// the next recipient and returns the context error with the partial report.
func (s *Sender[R]) Run(ctx context.Context, records []R) (*Report, error) {
	report := &Report{
		RunID: s.newID(),
		Total: len(records),
	}
	s.metrics.SetRecipients(report.Total)

	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	if err := s.transport.Connect(ctx); err != nil {
		if !errors.Is(err, common.ErrConnection) {
			err = common.Wrap(common.ErrConnection, err)
		}
		s.metrics.IncFailure(common.KindName(err))
		logger.Error().Err(err).Msg("batch: relay connectivity check failed")
		return report, err
	}

	// The sender is the same for every message; its error is still recorded
	// per recipient.
	from, senderErr := util.ParseAddress(s.cfg.Sender)
	if senderErr != nil {
		logger.Error().Err(senderErr).Msg("batch: sender address is invalid")
	}

	logger.Info().Int("recipients", report.Total).Msg("batch: run started")

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			logger.Warn().
				Int("processed", i).
				Int("total", report.Total).
				Err(err).
				Msg("batch: run cancelled")
			return report, err
		}

		fmt.Fprintf(s.progress, "Sending email: %d/%d\n", i+1, report.Total)
		s.process(ctx, report, i, record, from, senderErr)
	}

	logger.Info().
		Int("total", report.Total).
		Int("attempted", report.Attempted).
		Int("sent", report.Sent).
		Int("failed", len(report.Failures)).
		Msg("batch: run finished")

	return report, nil
}

func (s *Sender[R]) process(ctx context.Context, report *Report, index int, record R, from string, senderErr error) {
	id := s.newID()
	fail := func(address string, kind, err error, resp *emailprovider.RawResponse) {
		s.recordFailure(ctx, report, index, id, address, kind, err, resp)
	}

	raw, err := s.extractor.Address(record)
	if err != nil {
		fail("", common.ErrAddress, fmt.Errorf("extract recipient address: %w", err), nil)
		return
	}

	to, err := util.ParseAddress(raw)
	if err != nil {
		fail(raw, common.ErrAddress, fmt.Errorf("invalid recipient email address: %w", err), nil)
		return
	}

	if senderErr != nil {
		fail(to, common.ErrAddress, fmt.Errorf("invalid sender email address: %w", senderErr), nil)
		return
	}

	body, err := s.extractor.Body(record)
	if err != nil {
		fail(to, common.ErrMessageBuild, fmt.Errorf("extract body: %w", err), nil)
		return
	}

	msg, err := emailprovider.BuildMessage(&emailprovider.Payload{
		MessageID: fmt.Sprintf("%s@%s", id, util.Domain(from)),
		From:      from,
		To:        to,
		Subject:   s.cfg.Subject,
		Body:      body,
	}, s.now())
	if err != nil {
		fail(to, common.ErrMessageBuild, fmt.Errorf("failed to build email message: %w", err), nil)
		return
	}

	report.Attempted++
	start := s.now()
	resp, err := s.transport.Send(ctx, msg)
	duration := s.now().Sub(start)
	s.metrics.ObserveAttempt(duration)

	if err != nil {
		s.failureLine.Fprintf(s.progress, "Unable to send email %d/%d: %v\n", index+1, report.Total, err)
		fail(to, common.ErrSend, fmt.Errorf("failed to send email: %w", err), resp)
		return
	}

	report.Sent++
	s.metrics.IncSuccess()

	s.logger.Debug().
		Str("run_id", report.RunID).
		Int("index", index).
		Str("message_id", msg.ID).
		Dur("duration", duration).
		Msg("batch: message sent")

	event := models.StatusEvent{
		RunID:     report.RunID,
		MessageID: msg.ID,
		Index:     index,
		Recipient: to,
		EventType: models.StatusEventSent,
	}
	if resp != nil {
		event.Code = resp.Code
		event.Timestamp = resp.Timestamp
	}
	s.publishStatus(ctx, event)
}

func (s *Sender[R]) recordFailure(ctx context.Context, report *Report, index int, id, address string, kind, cause error, resp *emailprovider.RawResponse) {
	failure := Failure{
		Index:   index,
		Total:   report.Total,
		Address: address,
		Kind:    kind,
		Err:     common.Wrap(kind, cause),
	}
	if errors.Is(kind, common.ErrSend) {
		failure.Code, failure.Status = emailprovider.ClassifyError(cause)
		if resp != nil && resp.Code != 0 {
			failure.Code = resp.Code
		}
	}
	report.Failures = append(report.Failures, failure)
	s.metrics.IncFailure(failure.KindName())

	s.logger.Warn().
		Str("run_id", report.RunID).
		Int("index", index).
		Str("recipient", address).
		Str("kind", failure.KindName()).
		Int("code", failure.Code).
		Err(cause).
		Msg("batch: recipient failed")

	s.publishStatus(ctx, models.StatusEvent{
		RunID:       report.RunID,
		MessageID:   id,
		Index:       index,
		Recipient:   address,
		EventType:   models.StatusEventFailed,
		FailureKind: failure.KindName(),
		Code:        failure.Code,
		Status:      failure.Status,
		Error:       cause.Error(),
	})
}

func (s *Sender[R]) publishStatus(ctx context.Context, event models.StatusEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if s.statusPublisher == nil {
		return
	}
	if err := s.statusPublisher.PublishStatus(ctx, event); err != nil {
		s.logger.Error().
			Str("run_id", event.RunID).
			Str("message_id", event.MessageID).
			Str("event", event.EventType).
			Err(err).
			Msg("batch: failed to publish status event")
	}
}
