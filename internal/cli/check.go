package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
)

// NewCheckCommand verifies that the relay accepts a session with the
// configured credentials, without reading any recipients.
func NewCheckCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Open and verify the relay session, then close it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers := rt.cfg.Providers
			transport, err := rt.newTransport(providers, rt.componentLogger("email_transport"))
			if err != nil {
				return err
			}

			if err := transport.Connect(cmd.Context()); err != nil {
				return err
			}
			if err := transport.Close(); err != nil {
				rt.log.Warn().Err(err).Msg("failed to close relay session")
			}

			relay := net.JoinHostPort(providers.SMTP.Host, strconv.Itoa(providers.SMTP.Port))
			fmt.Fprintf(rt.out, "Relay %s reachable as %s\n", relay, rt.cfg.Credentials.Sender)
			return nil
		},
	}
}
