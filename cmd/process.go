package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
)

var (
	procFormat    string
	procOutput    string
	procChartsDir string
	procNoStages  bool
)

var processCmd = &cobra.Command{
	Use:   "process <job-id>",
	Short: "Process an uploaded job and render the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(procFormat); err != nil {
			return err
		}
		jobID := args[0]
		client := newClient()

		var resp *api.ProcessResponse
		stageCtx, stopStages := context.WithCancel(cmd.Context())
		defer stopStages()
		sp := newStagePrinter(cmd.ErrOrStderr())
		var g errgroup.Group
		if !procNoStages {
			stages := session.Stages{Labels: session.DefaultStageLabels, Delay: stageDelay()}
			g.Go(func() error { return stages.Play(stageCtx, sp.show) })
		}
		g.Go(func() error {
			defer stopStages()
			var err error
			resp, err = client.Process(cmd.Context(), jobID)
			return err
		})
		err := g.Wait()
		sp.done()
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Processed job %s\n", jobID)

		doc := &results.Document{JobID: jobID}
		if len(resp.Results) > 0 {
			if doc, err = results.Parse(resp.Results); err != nil {
				return err
			}
		}
		if doc.JobID == "" {
			doc.JobID = jobID
		}
		return writeResults(cmd, doc, outputOptions{Format: procFormat, Output: procOutput, ChartsDir: procChartsDir})
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	addOutputFlags(processCmd, &procFormat, &procOutput)
	processCmd.Flags().StringVar(&procChartsDir, "charts-dir", "", "write chart images (PNG) to this directory")
	processCmd.Flags().BoolVar(&procNoStages, "no-stages", false, "do not show the progress stages")
}

func addOutputFlags(c *cobra.Command, format, output *string) {
	c.Flags().StringVar(format, "format", "text", "output format: "+strings.Join(resultFormats, ", "))
	c.Flags().StringVarP(output, "output", "o", "", "write results to this file instead of stdout")
}

func stageDelay() time.Duration {
	return time.Duration(cfg.StageDelayMs) * time.Millisecond
}

// stagePrinter shows cosmetic stage labels on stderr, redrawing in place on a
// terminal and one per line otherwise.
type stagePrinter struct {
	w     io.Writer
	tty   bool
	shown bool
}

func newStagePrinter(w io.Writer) *stagePrinter {
	return &stagePrinter{w: w, tty: stderrIsTerminal()}
}

func (p *stagePrinter) show(label string) {
	p.shown = true
	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K⏳ %s…", label)
		return
	}
	fmt.Fprintf(p.w, "⏳ %s…\n", label)
}

func (p *stagePrinter) done() {
	if p.tty && p.shown {
		fmt.Fprint(p.w, "\r\033[K")
	}
}
