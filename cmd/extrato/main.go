package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"extrato/internal/cli"
	"extrato/internal/config"
	"extrato/internal/log"
)

// errPartialSync marks a run that reported row errors and stored nothing.
var errPartialSync = errors.New("sync stored no transactions and reported row errors")

type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "extrato",
		Short:         "Import bank statement spreadsheets into the transaction store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg.LogLevel, log.ComponentCLI)
			return nil
		},
	}
	root.AddCommand(newSyncCmd(a), newStatusCmd(a), newServeCmd(a))
	return root
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errPartialSync):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
