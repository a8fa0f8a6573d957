package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

var exportOutDir string

var exportCmd = &cobra.Command{
	Use:       "export <csv|json> <job-id>",
	Short:     "Download the cleaned data (csv) or the full results (json)",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"csv", "json"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := exportOutDir
		if dir == "" {
			dir = cfg.OutputDir
		}
		path, err := exportJob(cmd.Context(), newClient(), args[0], args[1], dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "", "directory for the exported file (default: output_dir from config)")
}

type exporter interface {
	ExportCSV(ctx context.Context, jobID string) (*api.Blob, error)
	ExportJSON(ctx context.Context, jobID string) (*api.Blob, error)
}

func exportJob(ctx context.Context, e exporter, format, jobID, dir string) (string, error) {
	var blob *api.Blob
	var err error
	switch format {
	case "csv":
		blob, err = e.ExportCSV(ctx, jobID)
	case "json":
		blob, err = e.ExportJSON(ctx, jobID)
	default:
		return "", fmt.Errorf("unsupported export format: %s (use csv or json)", format)
	}
	if err != nil {
		return "", fmt.Errorf("export %s: %w", format, err)
	}
	return saveBlob(blob, dir)
}

func saveBlob(blob *api.Blob, dir string) (string, error) {
	path := filepath.Join(dir, filepath.Base(blob.Filename))
	if err := utils.SafeWriteFile(path, blob.Data); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
