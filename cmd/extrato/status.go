package main

import (
	"github.com/spf13/cobra"

	"extrato/internal/cli"
)

func newStatusCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many transactions are stored and the latest one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := cli.OpenBackend(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer func() { _ = res.Cleanup() }()
			return printJSON(cmd.OutOrStdout(), res.Status.Status(ctx, firstSet(owner, a.cfg.OwnerID)))
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner to report on (default OWNER_ID)")
	return cmd
}
