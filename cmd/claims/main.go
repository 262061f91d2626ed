// Command claims submits insurance claim documents and lists the caller's
// claims against a deployed claims API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "claims: %s\n", apierr.Message(err))
		if errors.Is(err, apierr.ErrMisconfigured) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Insurance claim upload client",
		Long: `claims talks to the claim upload API: it requests presigned upload URLs,
sends .txt claim documents straight to storage, and lists the claims you own.
Configuration comes from the environment (or a .env file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	cmd.AddCommand(
		newListCmd(a),
		newPresignCmd(a),
		newPutCmd(a),
		newUploadCmd(a),
	)
	return cmd
}
