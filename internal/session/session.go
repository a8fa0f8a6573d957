// Package session holds the state of one upload/process view and drives the
// backend calls triggered by user actions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/files"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

var (
	// ErrNoFile is returned when selecting without a file.
	ErrNoFile = errors.New("no file selected")
	// ErrBusy is returned when an upload or process call is already in flight.
	ErrBusy = errors.New("another request is in progress")
	// ErrFileTooLarge is returned when the file exceeds the configured upload limit.
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
	// ErrDiscarded is returned when the selection changed while a call was in flight.
	ErrDiscarded = errors.New("result discarded: selection changed during the request")
	// ErrUnknownExport is returned for export formats other than csv and json.
	ErrUnknownExport = errors.New("unknown export format")
)

// TransitionError reports an action that is not valid in the current phase.
type TransitionError struct {
	Op   string
	From Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.From)
}

// Backend is the subset of the API client the session drives.
type Backend interface {
	Health(ctx context.Context) (json.RawMessage, error)
	Upload(ctx context.Context, f api.File, prompt string) (*api.UploadResult, error)
	Process(ctx context.Context, jobID string) (*api.ProcessResponse, error)
	ExportCSV(ctx context.Context, jobID string) (*api.Blob, error)
	ExportJSON(ctx context.Context, jobID string) (*api.Blob, error)
}

type Options struct {
	// MaxUploadBytes refuses larger files at upload time; 0 disables the check.
	MaxUploadBytes int64
	// Stages is the cosmetic sequence played while processing.
	Stages Stages
	// OnStage, when set, observes every cosmetic stage label.
	OnStage func(label string)
	Logger  logrus.FieldLogger
}

// DefaultOptions enforces the advertised 50 MB ceiling and the standard stages.
func DefaultOptions() Options {
	return Options{
		MaxUploadBytes: files.MaxAdvertisedSize,
		Stages:         Stages{Labels: DefaultStageLabels, Delay: DefaultStageDelay},
	}
}

// Session is safe for concurrent use.
type Session struct {
	backend Backend
	opts    Options
	log     logrus.FieldLogger

	mu     sync.Mutex
	state  State
	busy   bool
	gen    uint64
	notice string
	stage  string
	health json.RawMessage
}

func New(b Backend, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{backend: b, opts: opts, log: log, state: Idle{}}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether an upload or process call is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Notice is the pending user-facing alert, if any.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Session) DismissNotice() {
	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()
}

// StageLabel is the cosmetic label currently displayed, "" when idle.
func (s *Session) StageLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// LastHealth is the payload of the most recent successful health check.
func (s *Session) LastHealth() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// Select replaces whatever was selected before. No validation happens here.
func (s *Session) Select(f *files.SelectedFile) error {
	if f == nil {
		return ErrNoFile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = FileSelected{File: f}
	s.notice = ""
	return nil
}

// SetPrompt updates the free-text prompt sent with the next upload.
func (s *Session) SetPrompt(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Idle); ok {
		return &TransitionError{Op: "set prompt", From: PhaseIdle}
	}
	s.state = withPrompt(s.state, prompt)
	return nil
}

// Remove clears the file, job, results and prompt from any state.
func (s *Session) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Idle{}
	s.notice = ""
	s.stage = ""
}

// Upload sends the selected file. On failure the session returns to
// FileSelected with a notice; on success any previous results are dropped.
func (s *Session) Upload(ctx context.Context) (*api.UploadResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	var f *files.SelectedFile
	switch s.state.(type) {
	case FileSelected, Uploaded, Processed:
		f = FileOf(s.state)
	default:
		from := s.state.Phase()
		s.mu.Unlock()
		return nil, &TransitionError{Op: "upload", From: from}
	}
	prompt := PromptOf(s.state)
	if limit := s.opts.MaxUploadBytes; limit > 0 && f.Size() > limit {
		s.state = FileSelected{File: f, Prompt: prompt}
		s.notice = fmt.Sprintf("Upload failed: %s is %s, the limit is %s", f.Name(), utils.FormatDecimalSize(f.Size()), utils.FormatDecimalSize(limit))
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, f.Size(), limit)
	}
	s.state = Uploading{File: f, Prompt: prompt}
	s.busy = true
	s.notice = ""
	gen := s.gen
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"file": f.Name(), "size": f.Size()}).Debug("upload started")
	res, err := s.backend.Upload(ctx, f, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if gen != s.gen {
		return nil, ErrDiscarded
	}
	prompt = PromptOf(s.state)
	if err != nil {
		s.state = FileSelected{File: f, Prompt: prompt}
		s.notice = "Upload failed: " + describe(err)
		return nil, err
	}
	s.state = Uploaded{File: f, Prompt: prompt, Upload: res}
	return res, nil
}

// Process runs backend processing for the uploaded job while the cosmetic
// stage sequence plays. On failure the session returns to Uploaded.
func (s *Session) Process(ctx context.Context) (*results.Document, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	switch s.state.(type) {
	case Uploaded, Processed:
	default:
		from := s.state.Phase()
		s.mu.Unlock()
		return nil, &TransitionError{Op: "process", From: from}
	}
	f, prompt, up := FileOf(s.state), PromptOf(s.state), UploadOf(s.state)
	s.state = Processing{File: f, Prompt: prompt, Upload: up}
	s.busy = true
	s.notice = ""
	gen := s.gen
	s.mu.Unlock()

	start := time.Now()
	stageCtx, stopStages := context.WithCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		return s.opts.Stages.Play(stageCtx, func(label string) { s.setStage(gen, label) })
	})
	var resp *api.ProcessResponse
	g.Go(func() error {
		defer stopStages()
		var err error
		resp, err = s.backend.Process(ctx, up.JobID)
		return err
	})
	err := g.Wait()

	var doc *results.Document
	if err == nil {
		doc, err = decodeResults(resp)
	}
	s.log.WithFields(logrus.Fields{"job_id": up.JobID, "duration": time.Since(start).Round(time.Millisecond)}).Debug("process finished")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if gen != s.gen {
		return nil, ErrDiscarded
	}
	s.stage = ""
	prompt = PromptOf(s.state)
	if err != nil {
		s.state = Uploaded{File: f, Prompt: prompt, Upload: up}
		s.notice = "Processing failed: " + describe(err)
		return nil, err
	}
	s.state = Processed{File: f, Prompt: prompt, Upload: up, Results: doc}
	return doc, nil
}

// Export downloads the cleaned data ("csv") or results ("json"). It never
// changes state.
func (s *Session) Export(ctx context.Context, format string) (*api.Blob, error) {
	s.mu.Lock()
	var jobID string
	switch s.state.(type) {
	case Uploaded, Processed:
		jobID = JobIDOf(s.state)
	default:
		from := s.state.Phase()
		s.mu.Unlock()
		return nil, &TransitionError{Op: "export", From: from}
	}
	s.mu.Unlock()

	var blob *api.Blob
	var err error
	switch format {
	case "csv":
		blob, err = s.backend.ExportCSV(ctx, jobID)
	case "json":
		blob, err = s.backend.ExportJSON(ctx, jobID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExport, format)
	}
	if err != nil {
		s.mu.Lock()
		s.notice = "Export failed. Please try again."
		s.mu.Unlock()
		s.log.WithError(err).WithField("job_id", jobID).Warn("export failed")
		return nil, err
	}
	return blob, nil
}

// Health runs the diagnostic check. It never touches the pipeline state.
func (s *Session) Health(ctx context.Context) (json.RawMessage, error) {
	h, err := s.backend.Health(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.health = h
	s.mu.Unlock()
	return h, nil
}

func (s *Session) setStage(gen uint64, label string) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.stage = label
	cb := s.opts.OnStage
	s.mu.Unlock()
	if cb != nil {
		cb(label)
	}
}

func decodeResults(resp *api.ProcessResponse) (*results.Document, error) {
	if resp == nil || len(resp.Results) == 0 {
		return &results.Document{}, nil
	}
	doc, err := results.Parse(resp.Results)
	if err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return doc, nil
}

// describe prefers the server's detail over the error text.
func describe(err error) string {
	if d := api.Detail(err); d != "" {
		return d
	}
	return err.Error()
}
