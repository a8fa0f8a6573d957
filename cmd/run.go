package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/files"
)

var (
	runPrompt    string
	runExports   []string
	runFormat    string
	runOutput    string
	runChartsDir string
	runNoStages  bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Upload, process and render a file in one go",
	Long: `Run drives the whole pipeline: the file is uploaded (with the optional prompt),
processed, and the results are rendered. Requested exports are saved to output_dir.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(runFormat); err != nil {
			return err
		}
		for _, e := range runExports {
			if e != "csv" && e != "json" {
				return fmt.Errorf("unsupported --export: %s (use csv or json)", e)
			}
		}
		f, err := files.Open(args[0])
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		sp := newStagePrinter(stderr)
		var onStage func(string)
		if !runNoStages {
			onStage = sp.show
		}
		sess := newSession(onStage)
		if err := selectFile(sess, f, runPrompt); err != nil {
			return err
		}
		up, err := sess.Upload(cmd.Context())
		if err != nil {
			return noticeError(sess, err)
		}
		printUpload(stderr, f, up)

		doc, err := sess.Process(cmd.Context())
		sp.done()
		if err != nil {
			return noticeError(sess, err)
		}
		if doc.JobID == "" {
			doc.JobID = up.JobID
		}
		if err := writeResults(cmd, doc, outputOptions{Format: runFormat, Output: runOutput, ChartsDir: runChartsDir}); err != nil {
			return err
		}

		for _, format := range runExports {
			blob, err := sess.Export(cmd.Context(), format)
			if err != nil {
				return noticeError(sess, err)
			}
			path, err := saveBlob(blob, cfg.OutputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "✓ Saved %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "optional instructions for the analysis")
	runCmd.Flags().StringSliceVar(&runExports, "export", nil, "also save exports: csv, json (comma-separated)")
	addOutputFlags(runCmd, &runFormat, &runOutput)
	runCmd.Flags().StringVar(&runChartsDir, "charts-dir", "", "write chart images (PNG) to this directory")
	runCmd.Flags().BoolVar(&runNoStages, "no-stages", false, "do not show the progress stages")
}
