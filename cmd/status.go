package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newClient().Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Job ID: %s\n", st.JobID)
		fmt.Fprintf(out, "Status: %s\n", st.Status)
		if st.Filename != "" {
			fmt.Fprintf(out, "File: %s\n", st.Filename)
		}
		if st.CreatedAt != "" {
			fmt.Fprintf(out, "Created: %s\n", st.CreatedAt)
		}
		if st.UpdatedAt != "" {
			fmt.Fprintf(out, "Updated: %s\n", st.UpdatedAt)
		}
		if st.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", st.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
