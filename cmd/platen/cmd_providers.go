package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platenhq/platen/worker"
)

func init() {
	rootCmd.AddCommand(providersCmd)
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and credential status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := worker.DefaultRegistry()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDEFAULT MODEL\tCREDENTIAL\tSTATUS")
		for _, name := range reg.Providers() {
			info, err := reg.Describe(name)
			if err != nil {
				return err
			}
			status := "missing"
			if info.CredentialSet {
				status = "ready"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, info.DefaultModel, info.CredentialEnv, status)
		}
		return w.Flush()
	},
}
