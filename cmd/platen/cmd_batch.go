package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/platenhq/platen/dataset"
	"github.com/platenhq/platen/prompt"
)

func init() {
	rootCmd.AddCommand(batchCmd)
	addWorkerFlags(batchCmd)
	addPromptFlags(batchCmd)
	batchCmd.Flags().String("data", "", "directory of JSON payload files")
	batchCmd.Flags().String("pattern", "", "glob pattern for payload files")
	batchCmd.Flags().Int("limit", 0, "maximum number of files to process")
	batchCmd.Flags().String("output", "", "directory to write result files to")
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a directory of JSON payloads",
	Long:  "Discover JSON payload files, process them concurrently, and write one result file per payload plus an aggregate JSONL file.",
	Args:  cobra.NoArgs,
	RunE:  runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	reader := dataset.NewReader(
		stringSetting(cmd, "data", cfg.Data.Dir, "data"),
		dataset.WithPattern(stringSetting(cmd, "pattern", cfg.Data.Pattern, dataset.DefaultPattern)),
		dataset.WithLimit(intSetting(cmd, "limit", cfg.Data.Limit, 0)),
	)
	payloads, err := reader.Read()
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		fmt.Fprintln(os.Stdout, "No payload files found.")
		return nil
	}

	items := make([]any, len(payloads))
	names := make([]string, len(payloads))
	for i, p := range payloads {
		items[i] = p.Data
		names[i] = p.Name
	}

	w, err := newWorker(cmd, cfg)
	if err != nil {
		return err
	}
	sel, err := newSelection(cmd, cfg)
	if err != nil {
		return err
	}

	results, err := w.Batch(cmd.Context(), items, sel)
	if err != nil {
		return err
	}

	if sel.Type == prompt.TypeExtract {
		for i, res := range results {
			if !res.Success {
				continue
			}
			g := dataset.ParseGraph(res.Output)
			slog.Info("extraction parsed",
				"name", names[i],
				"entities", len(g.Entities),
				"relationships", len(g.Relationships))
		}
	}

	outDir := stringSetting(cmd, "output", cfg.Output.Dir, "results")
	if err := dataset.NewWriter(outDir).WriteAll(names, results); err != nil {
		return err
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	fmt.Fprintf(os.Stdout, "Processed %d payloads: %d succeeded, %d failed. Results in %s.\n",
		len(results), succeeded, len(results)-succeeded, outDir)
	return nil
}
