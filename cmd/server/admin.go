package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/dues-engine/api"
	"github.com/warp/dues-engine/dues"
)

func deactivateExpiredCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "deactivate-expired",
		Short: "Switch off contribution types whose due date has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := dues.Today()
			if asOf != "" {
				d, err := dues.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				today = d
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			expired, err := dues.NewLedger(store, reconciler()).DeactivateExpired(cmd.Context(), today)
			if err != nil {
				return err
			}

			for _, t := range expired {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.ID, t.Name)
			}
			slog.Info("contribution types deactivated", "count", len(expired), "as_of", today.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "date to compare due dates against (YYYY-MM-DD, default today)")
	return cmd
}

func seedCmd() *cobra.Command {
	ids := make([]string, len(api.Scenarios))
	for i, s := range api.Scenarios {
		ids[i] = s.ID
	}

	return &cobra.Command{
		Use:       "seed <scenario>",
		Short:     "Reset the database and load a demo scenario",
		Long:      "Reset the database and load a demo scenario. Available: " + strings.Join(ids, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: ids,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			h := api.NewHandler(store, reconciler(), slog.Default())
			if err := h.ApplyScenario(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded scenario %s into %s\n", args[0], cfg.Database.Path)
			return nil
		},
	}
}
