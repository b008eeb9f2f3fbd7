package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/platenhq/platen/dataset"
	"github.com/platenhq/platen/worker"
)

func init() {
	rootCmd.AddCommand(processCmd)
	addWorkerFlags(processCmd)
	addPromptFlags(processCmd)
	processCmd.Flags().Bool("text", false, "treat input as plain text instead of JSON")
	processCmd.Flags().String("output", "", "directory to also write the result file to")
}

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Process one payload",
	Long:  "Process a single JSON payload (or plain text with --text) from a file or stdin and print the result.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	w, err := newWorker(cmd, cfg)
	if err != nil {
		return err
	}
	sel, err := newSelection(cmd, cfg)
	if err != nil {
		return err
	}

	input, name, err := readInput(args)
	if err != nil {
		return err
	}

	var res worker.Result
	if asText, _ := cmd.Flags().GetBool("text"); asText {
		res, err = w.ProcessText(cmd.Context(), string(input), sel)
	} else {
		res, err = w.Process(cmd.Context(), string(input), sel)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if dir := stringSetting(cmd, "output", cfg.Output.Dir, ""); dir != "" {
		path, err := dataset.NewWriter(dir).Write(name, res)
		if err != nil {
			return err
		}
		slog.Info("result written", "path", path)
	}

	if !res.Success {
		return fmt.Errorf("processing failed: %s", res.Error)
	}
	return nil
}

// readInput reads the payload from the file argument, or stdin when
// the argument is absent or "-".
func readInput(args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "stdin", nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(args[0]), nil
}
