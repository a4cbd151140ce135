package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa/internal/presentation/graph"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/workflow"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the intake conversation as a Mermaid flowchart",
	RunE: func(cmd *cobra.Command, args []string) error {
		var overlay *graph.Overlay
		if cmd.Flags().Changed("step") {
			step, _ := cmd.Flags().GetString("step")
			overlay = &graph.Overlay{Current: domain.Step(step)}
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(workflow.Flow(), overlay))
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("step", "", "Highlight this step (e.g. awaiting_country)")
}
