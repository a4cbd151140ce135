package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa/internal/cli"
	"github.com/aretw0/youvisa/pkg/domain"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print every task with its applicant, country and missing documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		rawStatus, _ := cmd.Flags().GetString("status")

		var filter domain.TaskStatus
		if rawStatus != "" {
			if filter, err = domain.ParseTaskStatus(rawStatus); err != nil {
				return err
			}
		}

		store, closeStore, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		details, err := store.GetAllTaskDetails(cmd.Context())
		if err != nil {
			return err
		}
		if filter != "" {
			kept := details[:0]
			for _, d := range details {
				if d.Task.Status == filter {
					kept = append(kept, d)
				}
			}
			details = kept
		}
		return cli.WriteReport(cmd.OutOrStdout(), details, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	reportCmd.Flags().String("status", "", "Only show tasks with this status")
}
