package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/talmud/media-service/docs/swagger"
	"github.com/talmud/media-service/internal/file"
	"github.com/talmud/media-service/internal/media"
	"github.com/talmud/media-service/internal/storage"
)

// countingStorage counts Store calls on top of a real backend.
type countingStorage struct {
	storage.Storage
	stores atomic.Int32
	err    error
}

func (c *countingStorage) Store(ctx context.Context, in storage.StoreInput, class media.Class) (*storage.Object, error) {
	c.stores.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Storage.Store(ctx, in, class)
}

type testEnv struct {
	srv    *httptest.Server
	router http.Handler
	store  *countingStorage
}

func newTestEnv(t *testing.T, expose bool, storeErr error) *testEnv {
	t.Helper()
	root := filepath.Join(t.TempDir(), "uploads")
	local, err := storage.NewLocalStorage(root, "/uploads")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	obs, err := storage.NewPrometheusObserver("", reg)
	require.NoError(t, err)

	counting := &countingStorage{Storage: local, err: storeErr}
	svc := file.NewService(storage.Instrument(counting, obs), media.NewValidator(media.DefaultMaxSize), time.Minute)

	router := NewRouter(Options{
		Files:   file.NewHandler(svc, 50*1000*1000, expose),
		Static:  local,
		Driver:  "local",
		Metrics: reg,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, router: router, store: counting}
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("title", "ignored"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, route, field, filename, contentType string, data []byte) (int, map[string]any) {
	t.Helper()
	body, ct := multipartBody(t, field, filename, contentType, data)
	res, err := http.Post(e.srv.URL+route, ct, body)
	require.NoError(t, err)
	return decode(t, res)
}

func (e *testEnv) delete(t *testing.T, payload string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, e.srv.URL+"/api/file", strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return decode(t, res)
}

func (e *testEnv) list(t *testing.T) (int, map[string]any) {
	t.Helper()
	res, err := http.Get(e.srv.URL + "/api/files")
	require.NoError(t, err)
	return decode(t, res)
}

func decode(t *testing.T, res *http.Response) (int, map[string]any) {
	t.Helper()
	defer res.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res.StatusCode, body
}

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t, true, nil)

	code, body := env.upload(t, "/upload/image", "file", "tiny.png", "image/png", []byte("0123456789"))

	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 10.0, body["size"])
	assert.NotEmpty(t, body["url"])
	assert.NotEmpty(t, body["identifier"])

	res, err := http.Get(env.srv.URL + body["url"].(string))
	require.NoError(t, err)
	got, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "0123456789", string(got))
}

func TestUploadImageWithForeignExtension(t *testing.T) {
	env := newTestEnv(t, true, nil)

	code, body := env.upload(t, "/upload/image", "file", "evil.html", "image/png", []byte("<html><script>alert(1)</script></html>"))
	require.Equal(t, http.StatusOK, code, body)

	url := body["url"].(string)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	res, err := http.Get(env.srv.URL + url)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
}

func TestUploadSizeMatchesPayload(t *testing.T) {
	env := newTestEnv(t, true, nil)

	for _, n := range []int{0, 1, 4096, 1 << 20} {
		data := bytes.Repeat([]byte{'a'}, n)
		code, body := env.upload(t, "/upload/audio", "file", "a.mp3", "audio/mpeg", data)
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, float64(n), body["size"])
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t, true, nil)

	for _, ct := range []string{"text/plain", "application/pdf", "image/png", "video/mp4"} {
		code, body := env.upload(t, "/upload/audio", "file", "notes.txt", ct, []byte("hello"))
		assert.Equal(t, http.StatusBadRequest, code, ct)
		assert.Contains(t, body["error"], "mp3, wav, ogg, m4a", ct)
	}
	assert.Zero(t, env.store.stores.Load())

	_, listing := env.list(t)
	assert.Equal(t, 0.0, listing["total"])
}

func TestUploadNoFile(t *testing.T) {
	env := newTestEnv(t, true, nil)

	code, body := env.upload(t, "/upload/image", "", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no file received", body["error"])

	code, body = env.upload(t, "/upload/image", "avatar", "a.png", "image/png", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no file received", body["error"])

	res, err := http.Post(env.srv.URL+"/upload/image", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	code, body = decode(t, res)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no file received", body["error"])

	assert.Zero(t, env.store.stores.Load())
}

func TestUploadTwoFilesRejected(t *testing.T) {
	env := newTestEnv(t, true, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.png"} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("x"))
	}
	require.NoError(t, mw.Close())

	res, err := http.Post(env.srv.URL+"/upload/image", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	code, _ := decode(t, res)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Zero(t, env.store.stores.Load())
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, true, nil)

	// served in-process: the server stops reading the body early
	body, ct := multipartBody(t, "file", "big.png", "image/png", make([]byte, 60<<20))
	req := httptest.NewRequest(http.MethodPost, "/upload/image", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)
	assert.Zero(t, env.store.stores.Load())

	_, listing := env.list(t)
	assert.Equal(t, 0.0, listing["total"])
}

func TestUploadBackendError(t *testing.T) {
	env := newTestEnv(t, true, errors.New("disk quota exceeded"))

	code, body := env.upload(t, "/upload/audio", "file", "a.ogg", "audio/ogg", []byte("x"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "disk quota exceeded", body["error"])
}

func TestUploadBackendErrorHidden(t *testing.T) {
	env := newTestEnv(t, false, errors.New("open /srv/uploads/audio: permission denied"))

	code, body := env.upload(t, "/upload/audio", "file", "a.ogg", "audio/ogg", []byte("x"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "upload audio failed", body["error"])
}

func TestListAfterUploads(t *testing.T) {
	env := newTestEnv(t, true, nil)

	code, audio := env.upload(t, "/upload/audio", "file", "a.wav", "audio/wav", []byte("abc"))
	require.Equal(t, http.StatusOK, code)
	code, image := env.upload(t, "/upload/image", "file", "b.jpg", "image/jpeg", []byte("abcdef"))
	require.Equal(t, http.StatusOK, code)

	code, body := env.list(t)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["total"])

	audios := body["audio"].([]any)
	images := body["images"].([]any)
	require.Len(t, audios, 1)
	require.Len(t, images, 1)

	a := audios[0].(map[string]any)
	assert.Equal(t, audio["identifier"], a["identifier"])
	assert.Equal(t, audio["url"], a["url"])
	assert.Equal(t, "audio", a["type"])
	assert.Equal(t, 3.0, a["size"])

	i := images[0].(map[string]any)
	assert.Equal(t, image["identifier"], i["identifier"])
	assert.Equal(t, "image", i["type"])
}

func TestDeleteFile(t *testing.T) {
	env := newTestEnv(t, true, nil)

	_, up := env.upload(t, "/upload/audio", "file", "a.mp3", "audio/mpeg", []byte("abc"))
	payload := `{"url":"` + up["url"].(string) + `","resourceType":"audio"}`

	code, body := env.delete(t, payload)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = env.delete(t, payload)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "file not found", body["error"])

	_, listing := env.list(t)
	assert.Equal(t, 0.0, listing["total"])
}

func TestDeleteFileErrors(t *testing.T) {
	env := newTestEnv(t, true, nil)

	tests := []struct {
		name    string
		payload string
		code    int
	}{
		{"never created", `{"identifier":"/uploads/images/1700000000000-1.png"}`, http.StatusNotFound},
		{"missing identifier", `{"resourceType":"image"}`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"malformed json", `{"identifier":`, http.StatusBadRequest},
		{"bad resource type", `{"identifier":"x.png","resourceType":"raw"}`, http.StatusBadRequest},
		{"path traversal", `{"identifier":"/uploads/../../etc/passwd"}`, http.StatusBadRequest},
		{"trailing garbage", `{"identifier":"x.png"} garbage`, http.StatusBadRequest},
		{"two objects", `{"identifier":"x.png"} {"identifier":"y.png"}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := env.delete(t, tc.payload)
			assert.Equal(t, tc.code, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDeleteResourceTypeIgnoresCase(t *testing.T) {
	env := newTestEnv(t, true, nil)

	_, up := env.upload(t, "/upload/audio", "file", "a.mp3", "audio/mpeg", []byte("abc"))

	code, body := env.delete(t, `{"url":"`+up["url"].(string)+`","resourceType":" Audio "}`+"\n")
	assert.Equal(t, http.StatusOK, code, body)
}

func TestDeleteDefaultsToImage(t *testing.T) {
	env := newTestEnv(t, true, nil)

	_, up := env.upload(t, "/upload/audio", "file", "a.mp3", "audio/mpeg", []byte("abc"))

	// a bare identifier without resourceType is looked up among images
	code, _ := env.delete(t, `{"identifier":"`+up["identifier"].(string)+`"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.delete(t, `{"identifier":"`+up["identifier"].(string)+`","resourceType":"video"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true, nil)

	res, err := http.Get(env.srv.URL + "/api/health")
	require.NoError(t, err)
	code, body := decode(t, res)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "local", body["storage"])
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, true, nil)

	res, err := http.Get(env.srv.URL + "/nope")
	require.NoError(t, err)
	code, body := decode(t, res)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["error"])

	res, err = http.Get(env.srv.URL + "/upload/image")
	require.NoError(t, err)
	code, body = decode(t, res)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.NotEmpty(t, body["error"])
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, true, nil)

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/upload/image", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true, nil)
	env.upload(t, "/upload/image", "file", "a.png", "image/png", []byte("abc"))

	res, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `media_storage_stored_bytes_total{class="image"} 3`)
}

func TestSwaggerDoc(t *testing.T) {
	env := newTestEnv(t, true, nil)

	res, err := http.Get(env.srv.URL + "/swagger/doc.json")
	require.NoError(t, err)
	code, body := decode(t, res)

	require.Equal(t, http.StatusOK, code)
	info := body["info"].(map[string]any)
	assert.Equal(t, "Talmud Media API", info["title"])

	paths := body["paths"].(map[string]any)
	for _, p := range []string{"/upload/audio", "/upload/image", "/api/files", "/api/file", "/api/health"} {
		assert.Contains(t, paths, p)
	}
}
