package main

import (
	"fmt"
	"text/tabwriter"

	"xquest/internal/catalog"

	"github.com/spf13/cobra"
)

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "Validate and print the quest catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		quests, err := catalog.Load(cfg.Quests.CatalogPath)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tTARGET\tXP\tTITLE")
		for _, q := range quests.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", q.ID, q.Type, q.Target(), q.XP, q.Title)
		}
		return w.Flush()
	},
}
