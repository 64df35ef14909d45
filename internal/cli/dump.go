package cli

import (
	"os"

	"github.com/spf13/cobra"

	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/metrics"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the namespace's exposition text once",
	Long: `Read the configured namespace from the store and print the rendered
exposition text to stdout.

Example:
  instrumentord dump --config config.yaml`,
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, st, err := setup(cmd.Context())
	if err != nil {
		return err
	}

	reader := metrics.NewReader(st, cfg.Namespace, corelog.Default())
	snapshots, err := reader.Read(cmd.Context())
	if err != nil {
		return err
	}
	return metrics.WriteText(os.Stdout, snapshots)
}
