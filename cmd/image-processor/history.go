// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/regtet/image-processor/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [output-folder]",
	Short: "Show past processing runs",
	Long: `History reads the history database inside an output folder (the
"processed" directory a run wrote to) and prints recent runs. With --run,
it prints the per-file records of one run instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum number of runs to show")
	historyCmd.Flags().String("run", "", "show per-file records for this run ID")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir := outputDirName
	if len(args) == 1 {
		dir = args[0]
	}
	if _, err := os.Stat(filepath.Join(dir, "history.db")); err != nil {
		return fmt.Errorf("no history database in %s", dir)
	}

	store, err := history.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, _ := cmd.Flags().GetString("run")
	if runID != "" {
		return printRunFiles(store, runID)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tINPUT\tFORMAT\tCONVERTED\tCOMPRESSED\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.InputDir,
			run.Format, run.Converted, run.Compressed, run.Failed)
	}
	return w.Flush()
}

func printRunFiles(store *history.Store, runID string) error {
	recs, err := store.RunFiles(runID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("no records for run %s\n", runID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATUS\tOUTPUT\tSIZE\tERROR")
	for _, rec := range recs {
		path := rec.OutputPath
		if path == "" {
			path = rec.InputPath
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			rec.Step, rec.Status, path, rec.SizeBytes, rec.Error)
	}
	return w.Flush()
}
