package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"extrato/internal/backend"
	"extrato/internal/cli"
	"extrato/internal/services"
)

type syncFlags struct {
	owner         string
	spreadsheetID string
	token         string
	file          string
	async         bool
	verbose       bool
}

func newSyncCmd(a *app) *cobra.Command {
	var f syncFlags
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the statement and store new transactions",
		Long: "Fetch the statement spreadsheet (or a local .xlsx with --file), parse every row and\n" +
			"store the transactions not seen before. Exits 2 when rows failed and none were stored;\n" +
			"a run that stored at least one row exits 0 and lists the failures in its output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), a, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner to sync for (default OWNER_ID)")
	cmd.Flags().StringVar(&f.spreadsheetID, "spreadsheet", "", "spreadsheet id (default STATEMENT_SPREADSHEET_ID, then lookup by title)")
	cmd.Flags().StringVar(&f.token, "token", "", "Google access token (default from stored OAuth credentials)")
	cmd.Flags().StringVar(&f.file, "file", "", "read a local .xlsx workbook instead of Google Sheets")
	cmd.Flags().BoolVar(&f.async, "async", false, "queue the sync for the worker instead of running it")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print every row outcome")
	return cmd
}

func runSync(ctx context.Context, a *app, f syncFlags, out io.Writer) error {
	cfg := a.cfg
	if f.file != "" {
		cfg.StatementFile = f.file
	}
	owner := firstSet(f.owner, cfg.OwnerID)
	spreadsheetID := firstSet(f.spreadsheetID, cfg.StatementSpreadsheetID)

	res, err := cli.OpenBackend(ctx, cfg, a.logger, func(bc *backend.Config) {
		if f.verbose {
			bc.Observer = func(o services.RowOutcome) {
				if o.Err != nil {
					fmt.Fprintf(out, "row %d: %s: %v\n", o.RowNumber, o.State, o.Err)
					return
				}
				fmt.Fprintf(out, "row %d: %s\n", o.RowNumber, o.State)
			}
		}
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			a.logger.WarnContext(ctx, "Cleanup failed", "error", err)
		}
	}()

	if f.async {
		if res.Publisher == nil {
			return errors.New("async sync needs AMQP_URL")
		}
		if err := res.Publisher.PublishSyncRequest(ctx, owner, spreadsheetID); err != nil {
			return fmt.Errorf("queue sync request: %w", err)
		}
		fmt.Fprintf(out, "queued sync for owner %q\n", owner)
		return nil
	}

	token := f.token
	if token == "" {
		ts, err := cli.TokenSource(ctx, cfg)
		if err != nil {
			return err
		}
		if ts != nil {
			tok, err := ts.Token()
			if err != nil {
				return fmt.Errorf("refresh google token: %w", err)
			}
			token = tok.AccessToken
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.SyncTimeout)
	defer cancel()

	result, runErr := res.Processor.Run(ctx, owner, token, spreadsheetID)
	if err := printJSON(out, result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !result.Success {
		return errPartialSync
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
