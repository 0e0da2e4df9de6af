package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trellisfw/trellis-reports/internal/config"
	"github.com/trellisfw/trellis-reports/internal/printer"
	"github.com/trellisfw/trellis-reports/internal/publish"
)

var (
	ensureDomain     string
	ensureToken      string
	ensureConfigPath string
	ensureVerbose    bool
)

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the remote report archive if it does not exist",
	Long: `Create the trellis-reports service document and the three day-indexed
report archives in the store. Safe to run repeatedly; an existing archive
is left untouched.`,
	RunE: runEnsure,
}

func init() {
	ensureCmd.Flags().StringVarP(&ensureDomain, "domain", "d", "", "store domain, without https")
	ensureCmd.Flags().StringVarP(&ensureToken, "token", "t", "", "store bearer token")
	ensureCmd.Flags().StringVar(&ensureConfigPath, "config", "", "config file (default: "+config.DefaultFile+")")
	ensureCmd.Flags().BoolVarP(&ensureVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(ensureCmd)
}

func runEnsure(cmd *cobra.Command, args []string) error {
	_, log, client, fetcher, err := setup(ensureConfigPath, ensureDomain, ensureToken, ensureVerbose)
	if err != nil {
		return printer.Error("%v", err)
	}

	pub := publish.NewPublisher(client, fetcher, log)
	if err := pub.EnsureEndpoints(context.Background()); err != nil {
		return printer.Error("Failed to ensure report archive: %v", err)
	}
	printer.Success("Report archive is ready\n")
	return nil
}
