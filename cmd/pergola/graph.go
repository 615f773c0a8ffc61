package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pergola"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the sequenced steps and the entities they touch.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		if !cmd.Flags().Changed("file") && len(args) > 0 {
			path = args[0]
		}

		wf, err := pergola.New(path)
		if err != nil {
			fmt.Printf("Error initializing pergola: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(wf.Mermaid())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
