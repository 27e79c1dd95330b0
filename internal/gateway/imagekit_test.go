package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImageKit(t *testing.T, handler http.HandlerFunc) *ImageKit {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ik, err := NewImageKit(ImageKitOptions{
		PrivateKey: "private_test",
		UploadURL:  srv.URL,
		Folder:     "/feed",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return ik
}

func TestNewImageKitRequiresKeyAndURL(t *testing.T) {
	_, err := NewImageKit(ImageKitOptions{UploadURL: "http://x"})
	assert.Error(t, err)
	_, err = NewImageKit(ImageKitOptions{PrivateKey: "k"})
	assert.Error(t, err)
}

func TestUploadSendsMultipartForm(t *testing.T) {
	ik := newTestImageKit(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "private_test", user)
		assert.Equal(t, "", pass)

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "cat.png", r.FormValue("fileName"))
		assert.Equal(t, "true", r.FormValue("useUniqueFileName"))
		assert.Equal(t, "backend_upload", r.FormValue("tags"))
		assert.Equal(t, "/feed", r.FormValue("folder"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "cat.png", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "png-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fileId":"f1","name":"cat_x1.png","url":"https://ik.imagekit.io/demo/cat_x1.png"}`))
	})

	res, err := ik.Upload(context.Background(), strings.NewReader("png-bytes"), "cat.png")
	require.NoError(t, err)
	assert.Equal(t, UploadResult{URL: "https://ik.imagekit.io/demo/cat_x1.png", FileID: "f1", Name: "cat_x1.png"}, res)
}

func TestUploadErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"message":"Invalid file"}`, ErrUpstreamRejected},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Your account cannot be authenticated."}`, ErrUpstreamRejected},
		{"throttled", http.StatusTooManyRequests, ``, ErrUpstreamUnavailable},
		{"server error", http.StatusInternalServerError, `oops`, ErrUpstreamUnavailable},
		{"missing url", http.StatusOK, `{"fileId":"f1"}`, ErrUpstreamRejected},
		{"malformed", http.StatusOK, `not json`, ErrUpstreamRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ik := newTestImageKit(t, func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := ik.Upload(context.Background(), strings.NewReader("x"), "a.png")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUploadRejectedMessageIsKept(t *testing.T) {
	ik := newTestImageKit(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid file"}`))
	})
	_, err := ik.Upload(context.Background(), strings.NewReader("x"), "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid file")
}

func TestUploadUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ik, err := NewImageKit(ImageKitOptions{PrivateKey: "k", UploadURL: url})
	require.NoError(t, err)
	_, err = ik.Upload(context.Background(), strings.NewReader("x"), "a.png")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestUploadInvalidInput(t *testing.T) {
	ik := newTestImageKit(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := ik.Upload(context.Background(), strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ik.Upload(context.Background(), strings.NewReader("x"), "noext")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ik.Upload(context.Background(), nil, "a.png")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadHonoursContext(t *testing.T) {
	release := make(chan struct{})
	ik := newTestImageKit(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ik.Upload(ctx, strings.NewReader("x"), "a.png")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
