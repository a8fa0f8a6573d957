package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/files"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

var uploadPrompt string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a data file and print its job id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := files.Open(args[0])
		if err != nil {
			return err
		}
		sess := newSession(nil)
		if err := selectFile(sess, f, uploadPrompt); err != nil {
			return err
		}
		res, err := sess.Upload(cmd.Context())
		if err != nil {
			return noticeError(sess, err)
		}
		printUpload(cmd.OutOrStdout(), f, res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadPrompt, "prompt", "", "optional instructions for the analysis")
}

// newSession builds a session over the configured client. onStage, when
// set, receives the cosmetic processing stages.
func newSession(onStage func(string)) *session.Session {
	opts := session.DefaultOptions()
	opts.MaxUploadBytes = cfg.MaxUploadBytes
	opts.Stages.Delay = stageDelay()
	opts.OnStage = onStage
	return session.New(newClient(), opts)
}

func selectFile(sess *session.Session, f *files.SelectedFile, prompt string) error {
	if err := sess.Select(f); err != nil {
		return err
	}
	if prompt != "" {
		return sess.SetPrompt(prompt)
	}
	return nil
}

// noticeError reports the session's user-facing notice while keeping the
// underlying error inspectable.
type noticeErr struct {
	notice string
	err    error
}

func (e *noticeErr) Error() string { return e.notice }
func (e *noticeErr) Unwrap() error { return e.err }

func noticeError(sess *session.Session, err error) error {
	if n := sess.Notice(); n != "" {
		return &noticeErr{notice: n, err: err}
	}
	return err
}

func printUpload(w io.Writer, f *files.SelectedFile, res *api.UploadResult) {
	fmt.Fprintf(w, "✓ Uploaded %s (%s, %s)\n", f.Name(), utils.FormatSize(f.Size()), f.Kind())
	fmt.Fprintf(w, "Job ID: %s\n", res.JobID)
	if res.Status != "" {
		fmt.Fprintf(w, "Status: %s\n", res.Status)
	}
	if res.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", res.Message)
	}
}
