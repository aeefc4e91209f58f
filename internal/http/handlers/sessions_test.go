package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "image/jpeg"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
	"headshot/internal/headshot"
	"headshot/internal/http/handlers"
	"headshot/internal/http/httpapi"
	"headshot/internal/infra"
)

type fakeEditor struct {
	edit func(context.Context, *domain.EncodedImage, string) (*domain.EncodedImage, error)
}

func (f fakeEditor) EditImage(ctx context.Context, src *domain.EncodedImage, instruction string) (*domain.EncodedImage, error) {
	return f.edit(ctx, src, instruction)
}

type sessionResponse struct {
	ID            string `json:"id"`
	Phase         string `json:"phase"`
	OriginalImage string `json:"original_image"`
	ResultImage   string `json:"result_image"`
	Error         string `json:"error"`
}

func pngImage(t *testing.T, width, height int) *domain.EncodedImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &domain.EncodedImage{Data: buf.Bytes(), MIME: "image/png"}
}

func newTestServer(t *testing.T, editor headshot.Editor) *httptest.Server {
	t.Helper()
	svc := headshot.NewService(headshot.Options{
		NewEditor: func() (headshot.Editor, error) { return editor, nil },
	})
	app := handlers.NewApp(domain.NewStore(time.Minute), svc, zerolog.New(io.Discard))
	cfg := &infra.Config{RateLimitPerMin: 1000}
	ts := httptest.NewServer(httpapi.NewRouter(app, zerolog.New(io.Discard), cfg))
	t.Cleanup(ts.Close)
	return ts
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d", resp.StatusCode)
	}
	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Phase != "idle" {
		t.Fatalf("new session phase = %s, want idle", sess.Phase)
	}
	return sess.ID
}

func uploadMultipart(t *testing.T, ts *httptest.Server, id string, img *domain.EncodedImage) sessionResponse {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(img.Data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return sess
}

func generate(t *testing.T, ts *httptest.Server, id string) sessionResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode generate response: %v", err)
	}
	return sess
}

func TestUploadGenerateDownloadEndToEnd(t *testing.T) {
	result := pngImage(t, 1024, 1024)
	ts := newTestServer(t, fakeEditor{edit: func(ctx context.Context, src *domain.EncodedImage, instruction string) (*domain.EncodedImage, error) {
		// The handler must have resized before the model call.
		cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
		if err != nil {
			t.Fatalf("editor received undecodable image: %v", err)
		}
		if cfg.Width != 1024 || cfg.Height != 512 {
			t.Fatalf("editor received %dx%d, want 1024x512", cfg.Width, cfg.Height)
		}
		return result, nil
	}})

	id := createSession(t, ts)
	up := uploadMultipart(t, ts, id, pngImage(t, 2000, 1000))
	if up.Phase != "uploaded" {
		t.Fatalf("phase after upload = %s", up.Phase)
	}
	if !strings.HasPrefix(up.OriginalImage, "data:image/png;base64,") {
		t.Fatalf("original image is not a png data URI")
	}

	gen := generate(t, ts, id)
	if gen.Phase != "succeeded" {
		t.Fatalf("phase after generate = %s (error=%q)", gen.Phase, gen.Error)
	}
	parsed, err := domain.ParseDataURI(gen.ResultImage)
	if err != nil {
		t.Fatalf("result image is not a data URI: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(parsed.Data)); err != nil {
		t.Fatalf("result does not decode as PNG: %v", err)
	}

	resp, err := http.Get(ts.URL + "/v1/sessions/" + id + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="professional-avatar.png"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read download body: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(body)); err != nil {
		t.Fatalf("downloaded bytes are not a valid PNG: %v", err)
	}
}

func TestGenerateFailureThenRetry(t *testing.T) {
	calls := 0
	ts := newTestServer(t, fakeEditor{edit: func(ctx context.Context, src *domain.EncodedImage, instruction string) (*domain.EncodedImage, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no image produced: response has no candidates")
		}
		return pngImage(t, 512, 512), nil
	}})

	id := createSession(t, ts)
	uploadMultipart(t, ts, id, pngImage(t, 800, 600))

	first := generate(t, ts, id)
	if first.Phase != "failed" {
		t.Fatalf("phase = %s, want failed", first.Phase)
	}
	if first.Error == "" || first.ResultImage != "" {
		t.Fatalf("failed state inconsistent: error=%q result=%q", first.Error, first.ResultImage)
	}

	second := generate(t, ts, id)
	if second.Phase != "succeeded" {
		t.Fatalf("retry phase = %s, want succeeded", second.Phase)
	}
	if second.Error != "" {
		t.Fatalf("previous error not cleared: %q", second.Error)
	}
}

func TestUploadViaDataURIResetsResult(t *testing.T) {
	ts := newTestServer(t, fakeEditor{edit: func(ctx context.Context, src *domain.EncodedImage, instruction string) (*domain.EncodedImage, error) {
		return pngImage(t, 256, 256), nil
	}})

	id := createSession(t, ts)
	uploadMultipart(t, ts, id, pngImage(t, 100, 100))
	if gen := generate(t, ts, id); gen.Phase != "succeeded" {
		t.Fatalf("phase = %s, want succeeded", gen.Phase)
	}

	payload, _ := json.Marshal(map[string]string{"data_uri": pngImage(t, 64, 64).DataURI()})
	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/image", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("upload data URI: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sess.Phase != "uploaded" {
		t.Fatalf("phase = %s, want uploaded", sess.Phase)
	}
	if sess.ResultImage != "" || sess.Error != "" {
		t.Fatalf("new select did not clear result/error: result=%q error=%q", sess.ResultImage, sess.Error)
	}
}

func TestUploadRejectsBadDataURI(t *testing.T) {
	ts := newTestServer(t, fakeEditor{})
	id := createSession(t, ts)

	payload, _ := json.Marshal(map[string]string{"data_uri": "http://not-a-data-uri"})
	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/image", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGenerateWithoutImageConflicts(t *testing.T) {
	ts := newTestServer(t, fakeEditor{})
	id := createSession(t, ts)

	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestDownloadWithoutResultIsNoOp(t *testing.T) {
	ts := newTestServer(t, fakeEditor{})
	id := createSession(t, ts)

	resp, err := http.Get(ts.URL + "/v1/sessions/" + id + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	ts := newTestServer(t, fakeEditor{})

	resp, err := http.Get(ts.URL + "/v1/sessions/nope")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
