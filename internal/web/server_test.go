package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const processed = `{"statistics": {"summary": {"total_rows": 120, "total_columns": 5}},
 "insights": "## Summary\n\nLooks fine.",
 "charts": [{"type": "pie", "title": "Share", "data": {"labels": ["a", "b"], "datasets": [{"data": [1, 3]}]}}]}`

type fakeBackend struct {
	mu        sync.Mutex
	uploadErr error
	exportErr error
	prompts   []string
}

func (f *fakeBackend) Health(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"healthy"}`), nil
}

func (f *fakeBackend) Upload(ctx context.Context, file api.File, prompt string) (*api.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &api.UploadResult{JobID: "abc123", Filename: file.Name()}, nil
}

func (f *fakeBackend) Process(ctx context.Context, jobID string) (*api.ProcessResponse, error) {
	return &api.ProcessResponse{Message: "done", Results: json.RawMessage(processed)}, nil
}

func (f *fakeBackend) ExportCSV(ctx context.Context, jobID string) (*api.Blob, error) {
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	return &api.Blob{Data: []byte("a,b\n1,2\n"), ContentType: "text/csv", Filename: api.ExportFilename(api.OpExportCSV, jobID)}, nil
}

func (f *fakeBackend) ExportJSON(ctx context.Context, jobID string) (*api.Blob, error) {
	return &api.Blob{Data: []byte(`{}`), ContentType: "application/json"}, nil
}

// browser replays the view cookie like a real browser would.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodPost, path, nil))
}

func (b *browser) selectFile(name, content, prompt string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(b.t, err)
	_, _ = io.WriteString(fw, content)
	if prompt != "" {
		require.NoError(b.t, mw.WriteField("prompt", prompt))
	}
	require.NoError(b.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/select", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func newTestServer(t *testing.T, be *fakeBackend) (*Server, *browser) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	opts := session.DefaultOptions()
	opts.Stages = session.Stages{Labels: []string{"Parsing file"}, Delay: time.Millisecond}
	s, err := NewServer(Config{Backend: be, Session: opts, Renderer: charts.NewRenderer(320, 200), Logger: log})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, &browser{t: t, h: s}
}

func TestIndexAdvertisesLimits(t *testing.T) {
	_, b := newTestServer(t, &fakeBackend{})
	w := b.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, b.cookie)
	body := w.Body.String()
	assert.Contains(t, body, `accept=".csv,.json,.xlsx,.xls,.txt,.pdf"`)
	assert.Contains(t, body, "max 50 MB")
	assert.NotContains(t, body, "Job ID:")
}

func TestUploadShowsJobID(t *testing.T) {
	be := &fakeBackend{}
	_, b := newTestServer(t, be)
	b.get("/")

	w := b.selectFile("sales.csv", "a,b\n1,2\n", "focus on revenue")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, b.get("/").Body.String(), "sales.csv")

	require.Equal(t, http.StatusSeeOther, b.post("/upload").Code)
	body := b.get("/").Body.String()
	assert.Contains(t, body, "Job ID: abc123")
	assert.NotContains(t, body, `class="results"`)
	assert.Equal(t, []string{"focus on revenue"}, be.prompts)
}

func TestProcessRendersResultsAndCharts(t *testing.T) {
	_, b := newTestServer(t, &fakeBackend{})
	b.selectFile("sales.csv", "a,b\n1,2\n", "")
	b.post("/upload")
	require.Equal(t, http.StatusSeeOther, b.post("/process").Code)

	body := b.get("/").Body.String()
	assert.Contains(t, body, `<span class="value">120</span>`)
	assert.Contains(t, body, `<span class="value">5</span>`)
	assert.Contains(t, body, `src="/charts/0"`)

	img := b.get("/charts/0")
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(img.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, b.get("/charts/7").Code)

	// removing the file takes the charts off display
	b.post("/remove")
	assert.Equal(t, http.StatusNotFound, b.get("/charts/0").Code)
	assert.NotContains(t, b.get("/").Body.String(), "sales.csv")
}

func TestUploadFailureRaisesNotice(t *testing.T) {
	be := &fakeBackend{uploadErr: &api.BadRequestError{APIError: &api.APIError{StatusCode: 400, Detail: "file too large"}}}
	_, b := newTestServer(t, be)
	b.selectFile("big.csv", "x", "")
	b.post("/upload")

	body := b.get("/").Body.String()
	assert.Contains(t, body, "Upload failed: file too large")
	assert.Contains(t, body, "file selected")

	b.post("/dismiss")
	assert.NotContains(t, b.get("/").Body.String(), "file too large")
}

func TestExportSetsAttachment(t *testing.T) {
	be := &fakeBackend{}
	_, b := newTestServer(t, be)
	b.selectFile("sales.csv", "a,b\n1,2\n", "")
	b.post("/upload")

	w := b.get("/export/csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="cleaned_data_abc123.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n1,2\n", w.Body.String())

	w = b.get("/export/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="results_abc123.json"`, w.Header().Get("Content-Disposition"))

	assert.Equal(t, http.StatusNotFound, b.get("/export/xml").Code)

	be.exportErr = errors.New("boom")
	assert.Equal(t, http.StatusSeeOther, b.get("/export/csv").Code)
	assert.Contains(t, b.get("/").Body.String(), "Export failed. Please try again.")
}

func TestExportBeforeUploadConflicts(t *testing.T) {
	_, b := newTestServer(t, &fakeBackend{})
	assert.Equal(t, http.StatusConflict, b.get("/export/csv").Code)
}

func TestStageAndHealth(t *testing.T) {
	_, b := newTestServer(t, &fakeBackend{})
	w := b.get("/stage")
	require.Equal(t, http.StatusOK, w.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "idle", st["phase"])
	assert.Equal(t, false, st["busy"])

	b.post("/health")
	assert.True(t, strings.Contains(b.get("/").Body.String(), "healthy"))
}

func TestViewsAreIsolated(t *testing.T) {
	s, a := newTestServer(t, &fakeBackend{})
	a.selectFile("mine.csv", "x", "")
	other := &browser{t: t, h: s}
	assert.NotContains(t, other.get("/").Body.String(), "mine.csv")
}

func TestCookielessReadsDoNotCreateViews(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})
	for i := 0; i < 500; i++ {
		for _, path := range []string{"/stage", "/charts/0", "/export/csv", "/favicon.ico"} {
			w := httptest.NewRecorder()
			s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Empty(t, w.Result().Cookies(), path)
		}
	}
	assert.Equal(t, 0, s.ViewCount())
}

func TestViewCountIsBounded(t *testing.T) {
	s, first := newTestServer(t, &fakeBackend{})
	s.cfg.MaxViews = 3
	first.selectFile("mine.csv", "x", "")
	require.Equal(t, 1, s.ViewCount())
	s.mu.Lock()
	var evicted *view
	for _, v := range s.views {
		evicted = v
	}
	s.mu.Unlock()

	clock := time.Now()
	s.now = func() time.Time { return clock }
	for i := 0; i < 50; i++ {
		clock = clock.Add(time.Second)
		(&browser{t: t, h: s}).post("/dismiss")
	}
	assert.Equal(t, 3, s.ViewCount())
	_, idle := evicted.sess.State().(session.Idle)
	assert.True(t, idle, "evicted view should drop its file")
	assert.NotContains(t, first.get("/").Body.String(), "mine.csv")
}

func TestIdleViewsExpire(t *testing.T) {
	s, b := newTestServer(t, &fakeBackend{})
	clock := time.Now()
	s.now = func() time.Time { return clock }
	b.selectFile("mine.csv", "x", "")
	b.get("/")
	require.Equal(t, 1, s.ViewCount())

	clock = clock.Add(DefaultViewTTL / 2)
	s.sweep()
	assert.Equal(t, 1, s.ViewCount(), "recently used view survives")

	clock = clock.Add(DefaultViewTTL + time.Minute)
	s.sweep()
	assert.Equal(t, 0, s.ViewCount())
}
