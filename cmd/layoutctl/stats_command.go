package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"media-catalog/internal/database"
)

func newStatsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print object, container and entry counts of a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.New(cmd.Context(), dbPath, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := db.Counts(cmd.Context())
			if err != nil {
				return err
			}

			types := make([]string, 0, len(counts.Objects))
			for t := range counts.Objects {
				types = append(types, string(t))
			}
			sort.Strings(types)

			rows := make([][]string, 0, len(types)+2)
			for _, t := range types {
				rows = append(rows, []string{"objects (" + t + ")", strconv.Itoa(counts.Objects[database.ObjectType(t)])})
			}
			rows = append(rows,
				[]string{"containers", strconv.Itoa(counts.Containers)},
				[]string{"entries", strconv.Itoa(counts.Entries)},
			)
			if last, err := db.GetLastIndexRun(cmd.Context()); err == nil && !last.IsZero() {
				rows = append(rows, []string{"last index run", last.Local().Format("2006-01-02 15:04:05")})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", filepath.Join("/database", "catalog.db"), "Catalog database path")
	return cmd
}
