package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pergola"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the workflow for consistency",
	Long:  `Parses the document, resolves every reference and checks the Sequence, without executing anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		if !cmd.Flags().Changed("file") && len(args) > 0 {
			path = args[0]
		}

		wf, err := pergola.New(path)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workflow is valid. Sequence: %v\n", wf.Sequence())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
