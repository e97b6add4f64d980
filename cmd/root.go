package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "integrations",
	Short: "Integration and API key hub microservice",
	Long:  `A hub microservice managing external integration connections, long-lived API credentials with multi-window rate limits, and an auditable activity log.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
