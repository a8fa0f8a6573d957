package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/results"
)

var (
	resFormat    string
	resOutput    string
	resChartsDir string
)

var resultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: "Fetch and render the stored results of a processed job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(resFormat); err != nil {
			return err
		}
		raw, err := newClient().Results(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		doc, err := results.Parse(raw)
		if err != nil {
			return err
		}
		if doc.JobID == "" {
			doc.JobID = args[0]
		}
		return writeResults(cmd, doc, outputOptions{Format: resFormat, Output: resOutput, ChartsDir: resChartsDir})
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	addOutputFlags(resultsCmd, &resFormat, &resOutput)
	resultsCmd.Flags().StringVar(&resChartsDir, "charts-dir", "", "write chart images (PNG) to this directory")
}
