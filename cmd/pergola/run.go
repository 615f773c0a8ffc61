package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pergola/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the workflow sequence",
	Long:  `Loads and validates the workflow document, then executes its Sequence step by step.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		if !cmd.Flags().Changed("file") && len(args) > 0 {
			path = args[0]
		}
		overrides, _ := cmd.Flags().GetString("overrides")
		debug, _ := cmd.Flags().GetBool("debug")
		headless, _ := cmd.Flags().GetBool("headless")

		err := cli.RunSession(cli.RunOptions{
			Path:          path,
			OverridesPath: overrides,
			Debug:         debug,
			Headless:      headless,
		})
		if err != nil {
			fmt.Printf("Error running workflow: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("overrides", "", "YAML file with run overrides (batch size, seed, redis, metrics)")
	runCmd.Flags().Bool("debug", false, "Enable verbose logging and per-sample events")
	runCmd.Flags().Bool("headless", false, "Plain output for scripting; no banner or styling")

	// Preserve "pergola workflow.xml" as a shortcut for "pergola run".
	rootCmd.Run = runCmd.Run
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
