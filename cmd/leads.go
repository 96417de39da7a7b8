package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	leadsState    string
	leadsHasEmail bool
	leadsLimit    int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List stored prospects as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		prospects, err := st.ListProspects(ctx, store.LeadFilter{
			State:    leadsState,
			HasEmail: leadsHasEmail,
			Limit:    leadsLimit,
		})
		if err != nil {
			return err
		}

		out := export.NewCSVWriter(cmd.OutOrStdout())
		for _, p := range prospects {
			if err := out.Write(p); err != nil {
				return err
			}
		}
		return out.Close()
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsState, "state", "", "filter by two-letter state code")
	leadsCmd.Flags().BoolVar(&leadsHasEmail, "has-email", false, "only prospects with an email")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 100, "maximum rows")
	rootCmd.AddCommand(leadsCmd)
}
