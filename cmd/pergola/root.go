package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pergola",
	Short: "Pergola is a workflow interpreter for sampling-driven studies",
	Long: `Pergola runs declarative XML workflows that bind probability
distributions, samplers and computational models into sequenced steps.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("file", "f", "workflow.xml", "Workflow document to load")
}
