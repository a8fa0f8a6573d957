package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/files"
)

// fakeBackend answers from canned values. A non-nil gate blocks calls until it
// is closed, which lets tests observe in-flight state.
type fakeBackend struct {
	mu         sync.Mutex
	uploadRes  *api.UploadResult
	uploadErr  error
	processRes *api.ProcessResponse
	processErr error
	exportErr  error
	gate       chan struct{}
	started    chan struct{}
	uploads    int
	prompts    []string
}

func (b *fakeBackend) wait(ctx context.Context) error {
	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.gate == nil {
		return nil
	}
	select {
	case <-b.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBackend) Health(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"healthy"}`), nil
}

func (b *fakeBackend) Upload(ctx context.Context, f api.File, prompt string) (*api.UploadResult, error) {
	b.mu.Lock()
	b.uploads++
	b.prompts = append(b.prompts, prompt)
	b.mu.Unlock()
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.uploadRes, b.uploadErr
}

func (b *fakeBackend) Process(ctx context.Context, jobID string) (*api.ProcessResponse, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.processRes, b.processErr
}

func (b *fakeBackend) ExportCSV(ctx context.Context, jobID string) (*api.Blob, error) {
	if b.exportErr != nil {
		return nil, b.exportErr
	}
	return &api.Blob{Data: []byte("a,b\n"), Filename: api.ExportFilename(api.OpExportCSV, jobID)}, nil
}

func (b *fakeBackend) ExportJSON(ctx context.Context, jobID string) (*api.Blob, error) {
	if b.exportErr != nil {
		return nil, b.exportErr
	}
	return &api.Blob{Data: []byte("{}"), Filename: api.ExportFilename(api.OpExportJSON, jobID)}, nil
}

func quickOptions() Options {
	return Options{Stages: Stages{Labels: DefaultStageLabels, Delay: time.Millisecond}}
}

func mustFile(t *testing.T, name string, size int) *files.SelectedFile {
	t.Helper()
	f, err := files.FromBytes(name, make([]byte, size))
	require.NoError(t, err)
	return f
}

func okBackend() *fakeBackend {
	return &fakeBackend{
		uploadRes:  &api.UploadResult{JobID: "abc123", Status: "uploaded"},
		processRes: &api.ProcessResponse{Results: json.RawMessage(`{"statistics":{"summary":{"total_rows":120,"total_columns":5}}}`)},
	}
}

func TestSelectRecordsNameAndSize(t *testing.T) {
	s := New(okBackend(), quickOptions())
	for _, name := range []string{"a.csv", "b.json", "c.xlsx", "d.xls", "e.txt", "f.pdf", "g.bin"} {
		require.NoError(t, s.Select(mustFile(t, name, 321)))
		st, ok := s.State().(FileSelected)
		require.True(t, ok, "state %T", s.State())
		assert.Equal(t, name, st.File.Name())
		assert.EqualValues(t, 321, st.File.Size())
	}
}

func TestHappyPath(t *testing.T) {
	s := New(okBackend(), quickOptions())
	ctx := context.Background()
	require.NoError(t, s.Select(mustFile(t, "data.csv", 10)))
	require.NoError(t, s.SetPrompt("focus on price"))

	res, err := s.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.JobID)
	up, ok := s.State().(Uploaded)
	require.True(t, ok)
	assert.Equal(t, "abc123", up.Upload.JobID)
	assert.Equal(t, "focus on price", up.Prompt)

	doc, err := s.Process(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 120, *doc.Statistics.Summary.TotalRows)
	pr, ok := s.State().(Processed)
	require.True(t, ok)
	assert.Same(t, doc, pr.Results)
	assert.Empty(t, s.StageLabel())
	assert.False(t, s.Busy())

	blob, err := s.Export(ctx, "csv")
	require.NoError(t, err)
	assert.Equal(t, "cleaned_data_abc123.csv", blob.Filename)
	_, ok = s.State().(Processed)
	assert.True(t, ok, "export must not change state")
}

func TestUploadFailureReturnsToFileSelected(t *testing.T) {
	b := okBackend()
	b.uploadErr = &api.BadRequestError{APIError: &api.APIError{StatusCode: 400, Detail: "file too large"}}
	s := New(b, quickOptions())
	require.NoError(t, s.Select(mustFile(t, "big.csv", 10)))

	_, err := s.Upload(context.Background())
	require.Error(t, err)
	_, ok := s.State().(FileSelected)
	assert.True(t, ok)
	assert.Contains(t, s.Notice(), "file too large")
	assert.Contains(t, s.Notice(), "Upload failed: ")

	s.DismissNotice()
	assert.Empty(t, s.Notice())

	// retriable
	b.uploadErr = nil
	_, err = s.Upload(context.Background())
	require.NoError(t, err)
}

func TestUploadFailureWithoutDetailUsesMessage(t *testing.T) {
	b := okBackend()
	b.uploadErr = errors.New("connection reset")
	s := New(b, quickOptions())
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	_, _ = s.Upload(context.Background())
	assert.Equal(t, "Upload failed: connection reset", s.Notice())
}

func TestProcessFailureReturnsToUploaded(t *testing.T) {
	b := okBackend()
	b.processErr = &api.ServerError{APIError: &api.APIError{StatusCode: 500, Detail: "Processing failed: bad csv"}}
	s := New(b, quickOptions())
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	_, err := s.Upload(context.Background())
	require.NoError(t, err)

	_, err = s.Process(context.Background())
	require.Error(t, err)
	up, ok := s.State().(Uploaded)
	require.True(t, ok)
	assert.Equal(t, "abc123", up.Upload.JobID)
	assert.Contains(t, s.Notice(), "bad csv")
}

func TestRemoveClearsEverything(t *testing.T) {
	s := New(okBackend(), quickOptions())
	ctx := context.Background()
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	require.NoError(t, s.SetPrompt("p"))
	_, err := s.Upload(ctx)
	require.NoError(t, err)
	_, err = s.Process(ctx)
	require.NoError(t, err)

	s.Remove()
	assert.Equal(t, Idle{}, s.State())
	assert.Nil(t, FileOf(s.State()))
	assert.Empty(t, JobIDOf(s.State()))
	assert.Empty(t, PromptOf(s.State()))

	// the next selection starts without the old prompt
	require.NoError(t, s.Select(mustFile(t, "b.csv", 1)))
	assert.Empty(t, PromptOf(s.State()))
}

func TestIllegalTransitions(t *testing.T) {
	s := New(okBackend(), quickOptions())
	ctx := context.Background()

	var te *TransitionError
	_, err := s.Upload(ctx)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseIdle, te.From)

	_, err = s.Process(ctx)
	require.ErrorAs(t, err, &te)

	_, err = s.Export(ctx, "csv")
	require.ErrorAs(t, err, &te)

	require.ErrorAs(t, s.SetPrompt("x"), &te)

	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	_, err = s.Process(ctx)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseFileSelected, te.From)
	_, ok := s.State().(FileSelected)
	assert.True(t, ok, "failed transition must not change state")
}

func TestBusyRejectsOverlappingCalls(t *testing.T) {
	b := okBackend()
	b.gate = make(chan struct{})
	b.started = make(chan struct{}, 1)
	s := New(b, quickOptions())
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))

	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background())
		done <- err
	}()
	<-b.started
	assert.True(t, s.Busy())
	_, ok := s.State().(Uploading)
	assert.True(t, ok)

	_, err := s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(b.gate)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())
	assert.Equal(t, 1, b.uploads)
}

func TestRemoveDuringUploadDiscardsResult(t *testing.T) {
	b := okBackend()
	b.gate = make(chan struct{})
	b.started = make(chan struct{}, 1)
	s := New(b, quickOptions())
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))

	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background())
		done <- err
	}()
	<-b.started
	s.Remove()
	close(b.gate)

	assert.ErrorIs(t, <-done, ErrDiscarded)
	assert.Equal(t, Idle{}, s.State())
	assert.False(t, s.Busy())
}

func TestReuploadClearsResults(t *testing.T) {
	s := New(okBackend(), quickOptions())
	ctx := context.Background()
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	_, err := s.Upload(ctx)
	require.NoError(t, err)
	_, err = s.Process(ctx)
	require.NoError(t, err)

	_, err = s.Upload(ctx)
	require.NoError(t, err)
	_, ok := s.State().(Uploaded)
	assert.True(t, ok)
}

func TestUploadSizeLimit(t *testing.T) {
	b := okBackend()
	opts := quickOptions()
	opts.MaxUploadBytes = 10
	s := New(b, opts)
	require.NoError(t, s.Select(mustFile(t, "big.csv", 11)))

	_, err := s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, 0, b.uploads, "no request for oversize files")
	_, ok := s.State().(FileSelected)
	assert.True(t, ok)
	assert.Contains(t, s.Notice(), "Upload failed")
}

func TestUploadSizeLimitNoticeMatchesAdvertisedLimit(t *testing.T) {
	opts := quickOptions()
	opts.MaxUploadBytes = files.MaxAdvertisedSize
	s := New(okBackend(), opts)
	require.NoError(t, s.Select(mustFile(t, "big.csv", 55_500_000)))

	_, err := s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, "Upload failed: big.csv is 55.50 MB, the limit is 50 MB", s.Notice())
}

func TestProcessPlaysStagesUntilResolved(t *testing.T) {
	b := okBackend()
	b.started = make(chan struct{}, 2)
	var mu sync.Mutex
	var seen []string
	opts := quickOptions()
	opts.OnStage = func(l string) {
		mu.Lock()
		seen = append(seen, l)
		mu.Unlock()
	}
	s := New(b, opts)
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	_, err := s.Upload(context.Background())
	require.NoError(t, err)
	<-b.started

	b.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.Process(context.Background())
		done <- err
	}()
	<-b.started
	require.Eventually(t, func() bool {
		return s.StageLabel() == "Generating visualizations"
	}, 2*time.Second, 5*time.Millisecond)
	_, ok := s.State().(Processing)
	assert.True(t, ok)

	close(b.gate)
	require.NoError(t, <-done)
	assert.Empty(t, s.StageLabel())
	mu.Lock()
	assert.Equal(t, DefaultStageLabels, seen)
	mu.Unlock()
}

func TestExportFailureIsGeneric(t *testing.T) {
	b := okBackend()
	s := New(b, quickOptions())
	require.NoError(t, s.Select(mustFile(t, "a.csv", 1)))
	_, err := s.Upload(context.Background())
	require.NoError(t, err)

	b.exportErr = &api.NotFoundError{APIError: &api.APIError{StatusCode: 404, Detail: "Cleaned data not found"}}
	_, err = s.Export(context.Background(), "csv")
	require.Error(t, err)
	assert.Equal(t, "Export failed. Please try again.", s.Notice())
	_, ok := s.State().(Uploaded)
	assert.True(t, ok)

	_, err = s.Export(context.Background(), "xml")
	assert.ErrorIs(t, err, ErrUnknownExport)
}

func TestHealthDoesNotTouchState(t *testing.T) {
	s := New(okBackend(), quickOptions())
	h, err := s.Health(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy"}`, string(h))
	assert.JSONEq(t, `{"status":"healthy"}`, string(s.LastHealth()))
	assert.Equal(t, Idle{}, s.State())
}
