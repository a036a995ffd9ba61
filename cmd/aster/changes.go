package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	changelogrepo "github.com/Ramsey-B/aster/internal/repositories/changelog"
	"github.com/Ramsey-B/aster/pkg/models"
)

var (
	changesSubjectID   int64
	changesSubjectKind string
	changesChangeKind  string
	changesLimit       int
	changesFreshness   bool
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Query the change log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := newLogger()

		db, err := connectDatabase(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := changelogrepo.NewRepository(db, logger)
		ctx := cmd.Context()

		if changesFreshness {
			summaries, err := repo.Freshness(ctx, changesSubjectKind, changesLimit)
			if err != nil {
				return err
			}
			return printJSON(summaries)
		}

		entries, err := repo.List(ctx, models.ChangeLogFilter{
			SubjectID:   changesSubjectID,
			SubjectKind: changesSubjectKind,
			ChangeKind:  changesChangeKind,
			Limit:       changesLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(entries)
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	changesCmd.Flags().Int64Var(&changesSubjectID, "subject-id", 0, "filter by subject id")
	changesCmd.Flags().StringVar(&changesSubjectKind, "subject-kind", "", "filter by subject kind (movie, series)")
	changesCmd.Flags().StringVar(&changesChangeKind, "change-kind", "", "filter by change kind")
	changesCmd.Flags().IntVar(&changesLimit, "limit", 100, "maximum entries to return")
	changesCmd.Flags().BoolVar(&changesFreshness, "freshness", false, "show latest change per subject instead of entries")
	rootCmd.AddCommand(changesCmd)
}
