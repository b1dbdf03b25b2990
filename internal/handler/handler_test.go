package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	appI18n "github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/poller"
	"github.com/truonghoc/studio/internal/store"
	"github.com/truonghoc/studio/internal/studio"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("vi"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// fakeContent replays a fixed response. When gate is set, calls block until
// it is closed; started receives one value per call.
type fakeContent struct {
	mu      sync.Mutex
	resp    *llm.ContentResponse
	err     error
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeContent) GenerateContent(ctx context.Context, _ string, _ []llm.Part, _ llm.ContentOptions) (*llm.ContentResponse, error) {
	f.mu.Lock()
	f.calls++
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeContent) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func imageResp() *llm.ContentResponse {
	return &llm.ContentResponse{Parts: []llm.Part{
		llm.InlinePart(model.EncodedPart{Data: "AAAA", MIMEType: "image/png"}),
	}}
}

func textResp(s string) *llm.ContentResponse {
	return &llm.ContentResponse{Parts: []llm.Part{llm.TextPart(s)}}
}

// fakeVideos finishes every job on the first status query.
type fakeVideos struct {
	uri string
}

func (f *fakeVideos) GenerateVideos(context.Context, llm.VideoRequest) (*llm.Operation, error) {
	return &llm.Operation{Name: "operations/1"}, nil
}

func (f *fakeVideos) GetVideosOperation(_ context.Context, op *llm.Operation) (*llm.Operation, error) {
	return &llm.Operation{Name: op.Name, Done: true, ResultURI: f.uri}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

type testEnv struct {
	h       *Handler
	router  http.Handler
	srv     *httptest.Server
	content *fakeContent
	store   *store.Store
}

type envOption func(*studio.Options, *Config)

func withVideos(uri string, fetch poller.Fetcher) envOption {
	return func(o *studio.Options, _ *Config) {
		o.Videos = &fakeVideos{uri: uri}
		o.Fetch = fetch
	}
}

func withMaxUpload(mb int) envOption {
	return func(_ *studio.Options, c *Config) { c.MaxUploadMB = mb }
}

func newTestEnv(t *testing.T, content *fakeContent, opts ...envOption) *testEnv {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	so := studio.Options{
		Content:  content,
		Recorder: st,
		Policy:   poller.Policy{Interval: time.Millisecond, Sleep: noSleep},
	}
	cfg := Config{}
	for _, o := range opts {
		o(&so, &cfg)
	}

	h := New(Deps{Studio: studio.New(so), Store: st}, cfg)
	t.Cleanup(h.Close)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("vi"))
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{h: h, router: r, srv: srv, content: content, store: st}
}

type upload struct {
	field, name, mime string
	data              []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		hdr.Set("Content-Type", f.mime)
		pw, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = pw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngUpload(field string) upload {
	return upload{field: field, name: field + ".png", mime: "image/png", data: pngBytes}
}

func (e *testEnv) post(t *testing.T, path string, body io.Reader, contentType string, hdr ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndCatalog(t *testing.T) {
	env := newTestEnv(t, &fakeContent{})

	resp := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/api/catalog")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cat := decode[map[string][]string](t, resp)
	assert.Contains(t, cat["careers"], "Phi hành gia")
	assert.Contains(t, cat["subjects"], "Tin học")
	assert.Equal(t, []string{"1K", "2K", "4K"}, cat["resolution_tiers"])
}

func TestCareerImage(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: imageResp()})

	body, ct := multipartBody(t, map[string]string{"career": "Bác sĩ"}, pngUpload("portrait"))
	resp := env.post(t, "/api/images/career", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[imageResponse](t, resp)
	assert.Equal(t, "data:image/png;base64,AAAA", out.DataURI)
	assert.Equal(t, "image/png", out.MIMEType)
	assert.True(t, strings.HasPrefix(out.FileName, "ai-generated-"))
	assert.True(t, strings.HasSuffix(out.FileName, ".png"))

	gens, err := env.store.ListGenerations(context.Background(), store.GenerationFilter{})
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, model.CapabilityCareerImage, gens[0].Capability)
	assert.Equal(t, model.GenerationSucceeded, gens[0].Status)
}

func TestImageDownload(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: imageResp()})

	body, ct := multipartBody(t, nil, pngUpload("image"))
	resp := env.post(t, "/api/images/remove-background?download=1", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="ai-generated-`)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, data)
}

func TestImageEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fields map[string]string
		files  []upload
	}{
		{"merge", "/api/images/merge", nil, []upload{pngUpload("subject"), pngUpload("background")}},
		{"edit", "/api/images/edit", map[string]string{"instruction": "Thêm hiệu ứng Retro cổ điển"}, []upload{pngUpload("image")}},
		{"remove background", "/api/images/remove-background", nil, []upload{pngUpload("image")}},
		{"pro", "/api/images/pro", map[string]string{"prompt": "a red kite", "tier": "2K"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &fakeContent{resp: imageResp()})
			body, ct := multipartBody(t, tt.fields, tt.files...)
			resp := env.post(t, tt.path, body, ct)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, 1, env.content.count())
		})
	}
}

func TestImageRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		content    *fakeContent
		path       string
		fields     map[string]string
		files      []upload
		wantStatus int
		wantHint   bool
	}{
		{
			name:       "unknown career",
			content:    &fakeContent{resp: imageResp()},
			path:       "/api/images/career",
			fields:     map[string]string{"career": "Ca sĩ"},
			files:      []upload{pngUpload("portrait")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing file",
			content:    &fakeContent{resp: imageResp()},
			path:       "/api/images/edit",
			fields:     map[string]string{"instruction": "x"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad tier",
			content:    &fakeContent{resp: imageResp()},
			path:       "/api/images/pro",
			fields:     map[string]string{"prompt": "x", "tier": "8K"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no image in response",
			content:    &fakeContent{resp: textResp("sorry")},
			path:       "/api/images/remove-background",
			files:      []upload{pngUpload("image")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "quota",
			content:    &fakeContent{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
			path:       "/api/images/remove-background",
			files:      []upload{pngUpload("image")},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "premium remote failure",
			content:    &fakeContent{err: fmt.Errorf("permission denied")},
			path:       "/api/images/pro",
			fields:     map[string]string{"prompt": "x", "tier": "4K"},
			wantStatus: http.StatusBadGateway,
			wantHint:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.content)
			body, ct := multipartBody(t, tt.fields, tt.files...)
			resp := env.post(t, tt.path, body, ct)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			out := decode[errorResponse](t, resp)
			assert.NotEmpty(t, out.Error)
			assert.Equal(t, tt.wantHint, out.Hint != "")
		})
	}
}

func TestUnknownCareerMessage(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: imageResp()})
	body, ct := multipartBody(t, map[string]string{"career": "Ca sĩ"}, pngUpload("portrait"))
	resp := env.post(t, "/api/images/career", body, ct)
	out := decode[errorResponse](t, resp)
	assert.Equal(t, `Nghề nghiệp "Ca sĩ" không có trong danh sách.`, out.Error)
	assert.Zero(t, env.content.count())
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: imageResp()}, withMaxUpload(1))
	big := upload{field: "image", name: "big.png", mime: "image/png", data: bytes.Repeat([]byte{1}, 2<<20)}
	body, ct := multipartBody(t, nil, big)

	req := httptest.NewRequest(http.MethodPost, "/api/images/remove-background", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 MB")
	assert.Zero(t, env.content.count())
}

func TestInflightGuard(t *testing.T) {
	content := &fakeContent{resp: imageResp(), gate: make(chan struct{}), started: make(chan struct{}, 4)}
	env := newTestEnv(t, content)

	send := func(path string, body io.Reader, ct string, out chan<- int) {
		req, _ := http.NewRequest(http.MethodPost, env.srv.URL+path, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(clientIDHeader, "teacher-1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			out <- 0
			return
		}
		resp.Body.Close()
		out <- resp.StatusCode
	}

	first := make(chan int, 1)
	body, ct := multipartBody(t, nil, pngUpload("image"))
	go send("/api/images/remove-background", body, ct, first)
	<-content.started

	body, ct = multipartBody(t, nil, pngUpload("image"))
	resp := env.post(t, "/api/images/remove-background", body, ct, clientIDHeader, "teacher-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	other := make(chan int, 1)
	body, ct = multipartBody(t, map[string]string{"instruction": "x"}, pngUpload("image"))
	go send("/api/images/edit", body, ct, other)
	<-content.started

	close(content.gate)
	assert.Equal(t, http.StatusOK, <-first)
	assert.Equal(t, http.StatusOK, <-other)

	body, ct = multipartBody(t, nil, pngUpload("image"))
	resp = env.post(t, "/api/images/remove-background", body, ct, clientIDHeader, "teacher-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInflightAcquireRelease(t *testing.T) {
	g := newInflight()
	release, ok := g.acquire("a", model.CapabilityVideo)
	require.True(t, ok)

	_, ok = g.acquire("a", model.CapabilityVideo)
	assert.False(t, ok)
	_, ok = g.acquire("b", model.CapabilityVideo)
	assert.True(t, ok)
	_, ok = g.acquire("a", model.CapabilityEditImage)
	assert.True(t, ok)

	release()
	release()
	_, ok = g.acquire("a", model.CapabilityVideo)
	assert.True(t, ok)
}

func TestVideoLifecycle(t *testing.T) {
	fetch := func(_ context.Context, uri string) ([]byte, string, error) {
		if uri != "https://files.example/v.mp4" {
			return nil, "", fmt.Errorf("unexpected uri %s", uri)
		}
		return []byte("MP4"), "application/octet-stream", nil
	}
	env := newTestEnv(t, &fakeContent{}, withVideos("https://files.example/v.mp4", fetch))

	body, ct := multipartBody(t, map[string]string{"ratio": "9:16"}, pngUpload("image"))
	resp := env.post(t, "/api/videos", body, ct)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	started := decode[videoStatusResponse](t, resp)
	require.NotEmpty(t, started.ID)
	assert.Equal(t, poller.Submitted, started.State)

	var status videoStatusResponse
	require.Eventually(t, func() bool {
		r, err := http.Get(env.srv.URL + "/api/videos/" + started.ID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
			return false
		}
		return status.State.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, poller.Done, status.State)
	assert.Equal(t, "video/mp4", status.MIMEType)
	assert.Equal(t, 3, status.Size)

	resp = env.get(t, "/api/videos/"+started.ID+"/download")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="veo-video.mp4"`, resp.Header.Get("Content-Disposition"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "MP4", string(data))
}

func TestVideoFailedJob(t *testing.T) {
	env := newTestEnv(t, &fakeContent{}, withVideos("", func(context.Context, string) ([]byte, string, error) {
		return nil, "", fmt.Errorf("must not fetch")
	}))

	body, ct := multipartBody(t, nil, pngUpload("image"))
	resp := env.post(t, "/api/videos", body, ct)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[videoStatusResponse](t, resp).ID

	var status videoStatusResponse
	require.Eventually(t, func() bool {
		r, err := http.Get(env.srv.URL + "/api/videos/" + id)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
			return false
		}
		return status.State.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, poller.Failed, status.State)
	assert.Equal(t, "Không tìm thấy URI video.", status.Error)
	assert.NotEmpty(t, status.Hint)

	resp = env.get(t, "/api/videos/"+id+"/download")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestVideoRequestErrors(t *testing.T) {
	fetch := func(context.Context, string) ([]byte, string, error) { return []byte("x"), "video/mp4", nil }

	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, &fakeContent{})
		body, ct := multipartBody(t, nil, pngUpload("image"))
		resp := env.post(t, "/api/videos", body, ct)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
	t.Run("bad ratio", func(t *testing.T) {
		env := newTestEnv(t, &fakeContent{}, withVideos("u", fetch))
		body, ct := multipartBody(t, map[string]string{"ratio": "4:3"}, pngUpload("image"))
		resp := env.post(t, "/api/videos", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("missing seed", func(t *testing.T) {
		env := newTestEnv(t, &fakeContent{}, withVideos("u", fetch))
		body, ct := multipartBody(t, map[string]string{"ratio": "16:9"})
		resp := env.post(t, "/api/videos", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t, &fakeContent{})
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/videos/nope").StatusCode)
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/videos/nope/download").StatusCode)
	})
}

func TestVideoRegistry(t *testing.T) {
	reg := newVideoRegistry(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	pending := reg.add(now)
	done := reg.add(now)
	reg.setState(done, poller.Polling)
	reg.setState(done, poller.Done)

	j, ok := reg.get(done)
	require.True(t, ok)
	assert.Equal(t, poller.Polling, j.State, "terminal states come from finish only")

	reg.finish(done, &model.Video{Data: []byte("v"), MIMEType: "video/mp4"}, nil, now)
	j, _ = reg.get(done)
	assert.Equal(t, poller.Done, j.State)

	assert.Zero(t, reg.purge(now.Add(30*time.Second)))
	assert.Equal(t, 1, reg.purge(now.Add(2*time.Minute)))

	_, ok = reg.get(done)
	assert.False(t, ok)
	_, ok = reg.get(pending)
	assert.True(t, ok, "running jobs are never purged")
}

func examForm(subject string) map[string]string {
	return map[string]string{"subject": subject, "grade": "Lớp 5", "semester": "Cuối học kỳ I"}
}

func TestExamDocument(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: textResp("```html\n<p class=\"title\">ĐỀ KIỂM TRA</p>\n```")})

	body, ct := multipartBody(t, examForm("Toán"))
	resp := env.post(t, "/api/exams/document", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[htmlResponse](t, resp)
	assert.Equal(t, `<p class="title">ĐỀ KIỂM TRA</p>`, out.HTML)
	assert.Equal(t, "De_thi_Toan_Lop_5.doc", out.FileName)

	body, ct = multipartBody(t, examForm("Toán"), pngUpload("matrix"))
	resp = env.post(t, "/api/exams/document?format=doc", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/msword", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="De_thi_Toan_Lop_5.doc"`, resp.Header.Get("Content-Disposition"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<p class="title">ĐỀ KIỂM TRA</p>`)
	assert.Contains(t, string(data), "<title>Toán Lớp 5 Cuối học kỳ I</title>")
}

func TestExamValidation(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: textResp("x")})

	body, ct := multipartBody(t, examForm("Âm nhạc"))
	resp := env.post(t, "/api/exams/document", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, map[string]string{"subject": "Toán"})
	resp = env.post(t, "/api/exams/quiz", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.content.count())
}

func TestOnlineQuiz(t *testing.T) {
	raw := `{"title":"Kiểm tra","questions":[{"id":1,"type":"MCQ","text":"1+1?","options":["A. 1","B. 2"],"correctAnswer":"B"}]}`
	env := newTestEnv(t, &fakeContent{resp: textResp(raw)})

	body, ct := multipartBody(t, examForm("Toán"))
	resp := env.post(t, "/api/exams/quiz", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[quizResponse](t, resp)
	require.NotNil(t, out.Quiz)
	assert.Equal(t, "Kiểm tra", out.Quiz.Title)
	require.Len(t, out.Quiz.Questions, 1)
	assert.Equal(t, "Đã tạo 1 câu hỏi.", out.Message)
	assert.NotEmpty(t, out.Issues, "one question does not fill the blueprint")
}

func TestOnlineQuizMalformed(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: textResp("not json")})
	body, ct := multipartBody(t, examForm("Toán"))
	resp := env.post(t, "/api/exams/quiz", body, ct)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Dữ liệu đề thi trả về không hợp lệ. Vui lòng tạo lại.", decode[errorResponse](t, resp).Error)
}

func TestGradeQuiz(t *testing.T) {
	env := newTestEnv(t, &fakeContent{})

	req := `{
		"subject": "Toán",
		"quiz": {"title": "T", "questions": [
			{"id": 1, "type": "MCQ", "text": "1+1?", "options": ["A. 2", "B. 3"], "correctAnswer": "A"},
			{"id": 2, "type": "MCQ", "text": "2+2?", "options": ["A. 3", "B. 4"], "correctAnswer": "B"}
		]},
		"answers": {"1": {"choice": "A"}, "2": {"choice": "A"}}
	}`
	resp := env.post(t, "/api/exams/quiz/grade", strings.NewReader(req), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[gradeResponse](t, resp)
	assert.InDelta(t, 5.0, out.Earned, 0.001)
	assert.InDelta(t, 10.0, out.Max, 0.001)
	assert.Equal(t, 1, out.Correct)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, "Điểm: 5/10 (1/2 câu đúng)", out.Summary)

	resp = env.post(t, "/api/exams/quiz/grade", strings.NewReader(`{"subject":"Toán"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.post(t, "/api/exams/quiz/grade", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConvertDocument(t *testing.T) {
	env := newTestEnv(t, &fakeContent{resp: textResp("<table><tr><td>1</td></tr></table>")})

	pdf := upload{field: "file", name: "bien-ban.pdf", mime: "application/pdf", data: []byte("%PDF-1.4\n")}
	body, ct := multipartBody(t, nil, pdf)
	resp := env.post(t, "/api/documents/convert", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[htmlResponse](t, resp)
	assert.Equal(t, "Converted_bien_ban.doc", out.FileName)

	body, ct = multipartBody(t, nil, pdf)
	resp = env.post(t, "/api/documents/convert?format=doc", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="Converted_bien_ban.doc"`, resp.Header.Get("Content-Disposition"))

	txt := upload{field: "file", name: "notes.txt", mime: "text/plain", data: []byte("hello")}
	body, ct = multipartBody(t, nil, txt)
	resp = env.post(t, "/api/documents/convert", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportWord(t *testing.T) {
	env := newTestEnv(t, &fakeContent{})

	resp := env.post(t, "/api/export/word",
		strings.NewReader(`{"title":"Đề thi Toán","html":"<p>1</p>"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="De_thi_Toan.doc"`, resp.Header.Get("Content-Disposition"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf")))

	resp = env.post(t, "/api/export/word", strings.NewReader(`{"title":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLanguageOverride(t *testing.T) {
	env := newTestEnv(t, &fakeContent{})
	resp := env.post(t, "/api/export/word?lang=en", strings.NewReader(`{"title":"x"}`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing required input: html.", decode[errorResponse](t, resp).Error)
}
