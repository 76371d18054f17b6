package commands

import (
	"time"

	"casefeed/lib/identity"
	"casefeed/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fingerprintDatabase string

func init() {
	fingerprintCmd.Flags().StringVar(&fingerprintDatabase, "database", "", "Identity database to look up when each id was first seen.")
	rootCmd.AddCommand(fingerprintCmd)
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint [--database <dsn>] <url>...",
	Short: "Prints the stable id of each case url.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var store *identity.SQLStore
		if fingerprintDatabase != "" {
			var err error
			store, err = identity.OpenSQLStore(fingerprintDatabase)
			if err != nil {
				return err
			}
			defer store.Close()
		}

		t := newTable(cmd.OutOrStdout())
		if store == nil {
			t.AppendHeader(table.Row{"Id", "Url"})
		} else {
			t.AppendHeader(table.Row{"Id", "Url", "First seen"})
		}
		for _, url := range args {
			id := identity.Fingerprint(url)
			if store == nil {
				t.AppendRow(table.Row{id, url})
				continue
			}
			seen, ok, err := store.FirstSeen(cmd.Context(), id)
			if err != nil {
				return err
			}
			when := "never"
			if ok {
				when = timezone.Normalize(seen).Format(time.DateTime)
			}
			t.AppendRow(table.Row{id, url, when})
		}
		t.Render()
		return nil
	},
}
