package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/skelding/pdfpress/internal/app"
	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/config"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/ratelimit"
	"github.com/skelding/pdfpress/internal/store"
	"github.com/skelding/pdfpress/internal/upload"
)

type enqueueCall struct {
	key     string
	payload domain.Payload
	cleanup []string
}

// fakeQueue records enqueues and serves canned views, so the HTTP layer
// is tested without workers.
type fakeQueue struct {
	mu       sync.Mutex
	nextID   int
	enqueued []enqueueCall
	views    map[string]domain.JobView
	order    []string

	reapRecords, reapFiles int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{views: make(map[string]domain.JobView)}
}

func (q *fakeQueue) Enqueue(key string, payload domain.Payload, cleanup []string) *domain.JobRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.enqueued = append(q.enqueued, enqueueCall{key: key, payload: payload, cleanup: cleanup})
	return &domain.JobRecord{
		ID:        fmt.Sprintf("job-%d", q.nextID),
		Kind:      payload.Kind(),
		ClientKey: key,
		Status:    domain.StatusQueued,
		CreatedAt: time.Now(),
	}
}

func (q *fakeQueue) Get(id string) (domain.JobView, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.views[id]
	return v, ok
}

func (q *fakeQueue) List() []domain.JobView {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.JobView, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.views[id])
	}
	return out
}

func (q *fakeQueue) Reap() (int, int) { return q.reapRecords, q.reapFiles }

func (q *fakeQueue) putView(v domain.JobView) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.views[v.ID]; !ok {
		q.order = append(q.order, v.ID)
	}
	q.views[v.ID] = v
}

func (q *fakeQueue) calls() []enqueueCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueueCall(nil), q.enqueued...)
}

// fakeCV writes canned bytes to the scratch output, or fails.
type fakeCV struct {
	fail    error
	content []byte
}

func (f *fakeCV) RenderCV(ctx context.Context, p domain.CVPayload, out string) error {
	if f.fail != nil {
		return f.fail
	}
	return os.WriteFile(out, f.content, 0644)
}

func testApp(t *testing.T) (*app.Context, *fakeQueue, *store.TempStore) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Tools.Provider = "qpdf"
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Upload.MaxOfficeFileSize = 1 << 20
	cfg.Upload.MaxFiles = 10

	st, err := store.NewTempStore(t.TempDir(), t.TempDir(), logger.Nop())
	if err != nil {
		t.Fatalf("failed to build temp store: %v", err)
	}

	q := newFakeQueue()
	a := app.NewContext(cfg, logger.Nop())
	a.Queue = q
	a.Uploads = upload.NewValidator(st, cfg, logger.Nop())
	a.Store = st
	a.CV = &fakeCV{content: []byte("%PDF-1.4 rendered cv")}
	a.Limit = ratelimit.New(time.Minute, 1000)
	return a, q, st
}

func newServer(a *app.Context) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, a)
	return e
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type filePart struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files []filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, fp := range files {
		fw, err := w.CreateFormFile(fp.field, fp.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fp.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response %q is not a JSON object: %v", rec.Body.String(), err)
	}
	return m
}

func pdfUpload(field, name string) filePart {
	return filePart{field: field, name: name, data: []byte("%PDF-1.4\nminimal")}
}

func TestHealthReportsProvider(t *testing.T) {
	a, _, _ := testApp(t)
	a.DisabledFeatures = []string{"office-conversions"}
	e := newServer(a)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["status"] != "ok" || body["provider"] != "qpdf" {
		t.Fatalf("body = %v", body)
	}
	disabled, ok := body["disabledFeatures"].([]any)
	if !ok || len(disabled) != 1 || disabled[0] != "office-conversions" {
		t.Fatalf("disabledFeatures = %v", body["disabledFeatures"])
	}
}

func TestEnqueueMergeAccepted(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	req := multipartRequest(t, "/pdf/merge", nil, []filePart{
		pdfUpload("files", "a.pdf"),
		pdfUpload("files", "b.pdf"),
	})
	req.Header.Set("x-api-key", "team-a")
	rec := do(e, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if body := decodeMap(t, rec); body["jobId"] != "job-1" {
		t.Fatalf("body = %v", body)
	}

	calls := q.calls()
	if len(calls) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(calls))
	}
	call := calls[0]
	if call.key != "team-a" {
		t.Fatalf("client key = %q, want team-a", call.key)
	}
	payload, ok := call.payload.(domain.MergePayload)
	if !ok {
		t.Fatalf("payload type %T", call.payload)
	}
	if len(payload.Inputs) != 2 || len(call.cleanup) != 2 {
		t.Fatalf("inputs %v, cleanup %v", payload.Inputs, call.cleanup)
	}
	for _, p := range payload.Inputs {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("persisted input missing: %v", err)
		}
	}
}

func TestEnqueueAnonymousKey(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/split", nil, []filePart{pdfUpload("file", "doc.pdf")}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if calls := q.calls(); calls[0].key != "anon" {
		t.Fatalf("client key = %q, want anon", calls[0].key)
	}
}

func TestEnqueueUnknownOperation(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/blur", nil, []filePart{pdfUpload("files", "a.pdf")}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeMap(t, rec)
	if _, hasCode := body["code"]; hasCode {
		t.Fatalf("not-found body carries a code: %v", body)
	}
	if len(q.calls()) != 0 {
		t.Fatal("unknown operation reached the queue")
	}
}

func TestEnqueueMergeNeedsTwoFiles(t *testing.T) {
	a, q, st := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/merge", nil, []filePart{pdfUpload("files", "only.pdf")}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeMap(t, rec); body["code"] != string(domain.ErrBadPayload) {
		t.Fatalf("code = %v, want BAD_PAYLOAD", body["code"])
	}
	if len(q.calls()) != 0 {
		t.Fatal("refused merge reached the queue")
	}

	// The persisted single file must be discarded with the refusal.
	entries, err := os.ReadDir(st.UploadsDir())
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d files left after refusal", len(entries))
	}
}

func TestEnqueueRejectsMislabeledFile(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/compress", map[string]string{"preset": "balanced"},
		[]filePart{{field: "files", name: "fake.pdf", data: []byte("plain text")}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeMap(t, rec); body["code"] != string(domain.ErrUploadInvalidMagic) {
		t.Fatalf("code = %v, want UPLOAD_INVALID_MAGIC", body["code"])
	}
	if len(q.calls()) != 0 {
		t.Fatal("rejected upload reached the queue")
	}
}

func TestEnqueueRotateFields(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/rotate",
		map[string]string{"angle": "90", "pages": "1-3"},
		[]filePart{pdfUpload("files", "doc.pdf")}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}

	payload, ok := q.calls()[0].payload.(domain.RotatePayload)
	if !ok {
		t.Fatalf("payload type %T", q.calls()[0].payload)
	}
	if payload.Angle != 90 || payload.Pages != "1-3" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestEnqueueRotateMissingAngle(t *testing.T) {
	a, _, st := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/rotate", nil, []filePart{pdfUpload("files", "doc.pdf")}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeMap(t, rec); body["code"] != string(domain.ErrBadPayload) {
		t.Fatalf("code = %v, want BAD_PAYLOAD", body["code"])
	}
	entries, _ := os.ReadDir(st.UploadsDir())
	if len(entries) != 0 {
		t.Fatalf("%d files left after payload refusal", len(entries))
	}
}

func TestEnqueueFromHTMLNeedsNoFiles(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	rec := do(e, multipartRequest(t, "/pdf/from-html",
		map[string]string{"html": "<h1>hello</h1>"}, nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}

	payload, ok := q.calls()[0].payload.(domain.FromHTMLPayload)
	if !ok {
		t.Fatalf("payload type %T", q.calls()[0].payload)
	}
	if payload.HTML != "<h1>hello</h1>" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestRateLimitRefusesThirdRequest(t *testing.T) {
	a, _, _ := testApp(t)
	a.Limit = ratelimit.New(time.Second, 2)
	e := newServer(a)

	for i := 0; i < 2; i++ {
		if rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}
	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if body := decodeMap(t, rec); body["code"] != string(domain.ErrRateLimited) {
		t.Fatalf("code = %v, want RATE_LIMITED", body["code"])
	}

	// Another client still has budget.
	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.Header.Set("x-api-key", "someone-else")
	if rec := do(e, other); rec.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", rec.Code)
	}
}

func TestStatusNotFound(t *testing.T) {
	a, _, _ := testApp(t)
	e := newServer(a)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStatusBodyShapes(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	now := time.Now()
	q.putView(domain.JobView{
		ID: "r1", Kind: domain.KindSplit, Status: domain.StatusRunning,
		Progress: 40, CreatedAt: now, StartedAt: now,
	})
	q.putView(domain.JobView{
		ID: "s1", Kind: domain.KindMerge, Status: domain.StatusSucceeded,
		OutputPath: "/ignored/s1.pdf", CreatedAt: now, StartedAt: now, FinishedAt: now,
	})
	q.putView(domain.JobView{
		ID: "f1", Kind: domain.KindUnlock, Status: domain.StatusFailed,
		Error: "password is incorrect", ErrorCode: domain.ErrInvalidPassword,
		CreatedAt: now, StartedAt: now, FinishedAt: now,
	})

	t.Run("running", func(t *testing.T) {
		rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/r1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := decodeMap(t, rec)
		if body["status"] != "running" || body["kind"] != "split" {
			t.Fatalf("body = %v", body)
		}
		if body["progress"] != float64(40) {
			t.Fatalf("progress = %v, want 40", body["progress"])
		}
		if _, ok := body["downloadUrl"]; ok {
			t.Fatal("running job exposes a download URL")
		}
	})

	t.Run("succeeded", func(t *testing.T) {
		rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/s1", nil))
		body := decodeMap(t, rec)
		want := "http://example.com/jobs/download/s1"
		if body["downloadUrl"] != want {
			t.Fatalf("downloadUrl = %v, want %s", body["downloadUrl"], want)
		}
		if _, ok := body["error"]; ok {
			t.Fatalf("succeeded job carries an error: %v", body)
		}
	})

	t.Run("failed", func(t *testing.T) {
		rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/f1", nil))
		body := decodeMap(t, rec)
		if body["errorCode"] != string(domain.ErrInvalidPassword) {
			t.Fatalf("errorCode = %v", body["errorCode"])
		}
		if _, ok := body["downloadUrl"]; ok {
			t.Fatal("failed job exposes a download URL")
		}
	})
}

func TestDownloadStreamsArtifact(t *testing.T) {
	a, q, st := testApp(t)
	e := newServer(a)

	path, err := st.DownloadPath("s1", "pdf")
	if err != nil {
		t.Fatalf("DownloadPath: %v", err)
	}
	content := "%PDF-1.4 finished artifact"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	q.putView(domain.JobView{
		ID: "s1", Kind: domain.KindMerge, Status: domain.StatusSucceeded,
		OutputPath: path,
		Metrics:    map[string]int64{domain.MetricTotalPages: 7, "scratchBytes": 9},
		CreatedAt:  time.Now(),
	})

	rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/download/s1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != "attachment; filename=s1.pdf" {
		t.Fatalf("disposition = %q", got)
	}
	if got := rec.Header().Get("X-Total-Pages"); got != "7" {
		t.Fatalf("X-Total-Pages = %q, want 7", got)
	}
	for name := range rec.Header() {
		if strings.Contains(strings.ToLower(name), "scratch") {
			t.Fatalf("metric without a header mapping leaked onto the wire: %s", name)
		}
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("cache control = %q", got)
	}
	if rec.Body.String() != content {
		t.Fatalf("body = %q", rec.Body.String())
	}

	// One-shot: the artifact is unlinked once the stream completed, so a
	// repeat download misses.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("artifact still present after download, stat err = %v", err)
	}
	if rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/download/s1", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("second download status = %d, want 404", rec.Code)
	}
}

func TestDownloadBeforeSuccess(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)
	q.putView(domain.JobView{ID: "r1", Kind: domain.KindSplit, Status: domain.StatusRunning, CreatedAt: time.Now()})

	rec := do(e, httptest.NewRequest(http.MethodGet, "/jobs/download/r1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["code"] != string(domain.ErrBadPayload) {
		t.Fatalf("code = %v", body["code"])
	}
	if !strings.Contains(body["error"].(string), "running") {
		t.Fatalf("error = %v, want the current state named", body["error"])
	}
}

func TestLegacyDownloadByArtifact(t *testing.T) {
	a, _, st := testApp(t)
	e := newServer(a)

	path, err := st.DownloadPath("z9", "zip")
	if err != nil {
		t.Fatalf("DownloadPath: %v", err)
	}
	if err := os.WriteFile(path, []byte("PK archive"), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	rec := do(e, httptest.NewRequest(http.MethodGet, "/download/z9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/zip" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != "attachment; filename=z9.zip" {
		t.Fatalf("disposition = %q", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("artifact still present after download, stat err = %v", err)
	}

	if rec := do(e, httptest.NewRequest(http.MethodGet, "/download/nothing", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("missing artifact status = %d, want 404", rec.Code)
	}
}

func TestCVGenerateStreamsPDF(t *testing.T) {
	a, _, st := testApp(t)
	e := newServer(a)

	body, _ := json.Marshal(map[string]any{"fullName": "Ada Lovelace", "email": "ada@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/cv/generate", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/json")

	rec := do(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Header().Get("X-Elapsed-Time") == "" {
		t.Fatal("elapsed time header missing")
	}
	if rec.Body.String() != "%PDF-1.4 rendered cv" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	// The synchronous scratch output must not linger.
	entries, err := os.ReadDir(st.UploadsDir())
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d scratch files left after the response", len(entries))
	}
}

func TestCVGenerateBadJSON(t *testing.T) {
	a, _, _ := testApp(t)
	e := newServer(a)

	req := httptest.NewRequest(http.MethodPost, "/cv/generate", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, "application/json")
	rec := do(e, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeMap(t, rec); body["code"] != string(domain.ErrBadPayload) {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestCVGenerateRendererFailure(t *testing.T) {
	a, _, _ := testApp(t)
	a.CV = &fakeCV{fail: domain.Coded(domain.ErrBadPayload, "fullName is required")}
	e := newServer(a)

	req := httptest.NewRequest(http.MethodPost, "/cv/generate", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, "application/json")
	rec := do(e, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestAdminJobsListsEverything(t *testing.T) {
	a, q, _ := testApp(t)
	e := newServer(a)

	now := time.Now()
	q.putView(domain.JobView{ID: "a", Kind: domain.KindMerge, Status: domain.StatusQueued, CreatedAt: now})
	q.putView(domain.JobView{ID: "b", Kind: domain.KindSplit, Status: domain.StatusSucceeded, OutputPath: "/x/b.zip", CreatedAt: now})

	rec := do(e, httptest.NewRequest(http.MethodGet, "/admin/jobs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("body %q is not a JSON array: %v", rec.Body.String(), err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d jobs, want 2", len(list))
	}
	if _, ok := list[0]["downloadUrl"]; ok {
		t.Fatal("queued job exposes a download URL")
	}
	if list[1]["downloadUrl"] != "http://example.com/jobs/download/b" {
		t.Fatalf("succeeded downloadUrl = %v", list[1]["downloadUrl"])
	}
}

func TestAdminCleanupReportsCounts(t *testing.T) {
	a, q, _ := testApp(t)
	q.reapRecords, q.reapFiles = 3, 5
	e := newServer(a)

	rec := do(e, httptest.NewRequest(http.MethodPost, "/admin/cleanup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["removedRecords"] != float64(3) || body["removedFiles"] != float64(5) {
		t.Fatalf("body = %v", body)
	}
}
