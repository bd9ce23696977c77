package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/recipient-mailer/internal/batch"
	"github.com/example/recipient-mailer/internal/common"
	"github.com/example/recipient-mailer/internal/kafka/producer"
	kafkapublisher "github.com/example/recipient-mailer/internal/kafka/publisher"
	"github.com/example/recipient-mailer/internal/metrics"
	"github.com/example/recipient-mailer/internal/recipients"
)

type sendOptions struct {
	recipientsPath string
	addressField   string
	bodyField      string
	bodyTemplate   string
	subject        string
	metricsFile    string
	dryRun         bool
}

// NewSendCommand runs one batch: every recipient of the list gets one
// message over a single relay session.
func NewSendCommand(rt *runtimeState) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message to every recipient of the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd.Context(), rt, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.recipientsPath, "recipients", "", "Path to the JSON recipient array (default: bundled list)")
	flags.StringVar(&opts.addressField, "address-field", "email", "gjson path of the recipient address inside each record")
	flags.StringVar(&opts.bodyField, "body-field", "body", "gjson path of the message body inside each record")
	flags.StringVar(&opts.bodyTemplate, "body-template", "", "Body template with {{path}} placeholders; overrides --body-field")
	flags.StringVar(&opts.subject, "subject", "", "Subject line (default: MAIL_SUBJECT)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write prometheus metrics to this textfile (default: METRICS_TEXTFILE)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Use the in-memory transport instead of the relay")

	return cmd
}

func runSend(ctx context.Context, rt *runtimeState, opts *sendOptions) error {
	cfg := rt.cfg
	log := rt.componentLogger("send")

	records, err := loadRecipients(rt, opts.recipientsPath)
	if err != nil {
		return err
	}

	extractor, err := recipients.NewFieldExtractor(opts.addressField, opts.bodyField, opts.bodyTemplate)
	if err != nil {
		return err
	}

	providers := cfg.Providers
	if opts.dryRun {
		providers.EmailProvider = "mock"
	}

	transport, err := rt.newTransport(providers, rt.componentLogger("email_transport"))
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close relay session")
		}
	}()

	deps := batch.Dependencies[recipients.Record]{
		Transport: transport,
		Extractor: extractor,
		Progress:  rt.out,
		Logger:    rt.componentLogger("batch"),
	}

	if cfg.Kafka.Enabled() && !opts.dryRun {
		prod, err := producer.New(cfg.Kafka.Brokers, rt.componentLogger("kafka"))
		if err != nil {
			log.Warn().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("status events disabled: kafka producer unavailable")
		} else {
			defer func() {
				if err := prod.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close kafka producer")
				}
			}()
			deps.StatusPublisher = kafkapublisher.NewStatusPublisher(prod, cfg.Kafka.StatusTopic, rt.componentLogger("status_publisher"))
		}
	}

	recorder := metrics.New(providers.SMTP.Host)
	deps.Metrics = recorder

	subject := cfg.Mail.Subject
	if strings.TrimSpace(opts.subject) != "" {
		subject = opts.subject
	}

	sender, err := batch.New(batch.Config{
		Sender:  cfg.Credentials.Sender,
		Subject: subject,
	}, deps)
	if err != nil {
		return err
	}

	report, runErr := sender.Run(ctx, records)

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Metrics.TextfilePath
	}
	if err := recorder.WriteTextfile(metricsFile); err != nil {
		log.Error().Err(err).Str("path", metricsFile).Msg("failed to export metrics")
	}

	if runErr != nil {
		// A cancelled run still reports the recipients it got through.
		if !common.IsFatal(runErr) {
			report.WriteSummary(rt.out)
		}
		return runErr
	}

	if err := report.Err(); err != nil {
		log.Warn().
			Str("run_id", report.RunID).
			Int("sent", report.Sent).
			Int("address_failures", len(report.FailuresOf(common.ErrAddress))).
			Int("message_build_failures", len(report.FailuresOf(common.ErrMessageBuild))).
			Int("send_failures", len(report.FailuresOf(common.ErrSend))).
			Msg("batch finished with failures")
		report.WriteSummary(rt.out)
		return err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("sent", report.Sent).
		Msg("all recipients processed")
	return nil
}

func loadRecipients(rt *runtimeState, path string) ([]recipients.Record, error) {
	if path != "" {
		return recipients.Load(path)
	}
	return recipients.Parse(rt.defaultList)
}
