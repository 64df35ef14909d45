package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"instrumentor/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("Instrumentor %s\n", version.GetVersion())
}
