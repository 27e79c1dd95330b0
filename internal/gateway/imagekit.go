package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// ImageKit uploads files through the ImageKit upload API.
type ImageKit struct {
	privateKey string
	uploadURL  string
	folder     string
	client     *http.Client
}

// ImageKitOptions configures an ImageKit client.
type ImageKitOptions struct {
	PrivateKey string
	UploadURL  string
	Folder     string
	Timeout    time.Duration // Zero means no client timeout
}

// NewImageKit creates an ImageKit client.
func NewImageKit(opts ImageKitOptions) (*ImageKit, error) {
	if opts.PrivateKey == "" {
		return nil, errors.New("imagekit private key not set")
	}
	if opts.UploadURL == "" {
		return nil, errors.New("imagekit upload url not set")
	}
	return &ImageKit{
		privateKey: opts.PrivateKey,
		uploadURL:  opts.UploadURL,
		folder:     opts.Folder,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

type uploadResponse struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Upload streams r to ImageKit as fileName. The host is always asked to make
// the stored name unique.
func (k *ImageKit) Upload(ctx context.Context, r io.Reader, fileName string) (UploadResult, error) {
	if r == nil || fileName == "" || filepath.Ext(fileName) == "" {
		return UploadResult{}, fmt.Errorf("%w: a reader and a file name with an extension are required", ErrInvalidInput)
	}

	pr, pw := io.Pipe()
	// Unblocks the form writer if the request ends before the body is consumed.
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(k.writeForm(mw, r, fileName))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.uploadURL, pr)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(k.privateKey, "")

	resp, err := k.client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return UploadResult{}, statusError(resp, body)
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return UploadResult{}, fmt.Errorf("%w: malformed response: %v", ErrUpstreamRejected, err)
	}
	if out.URL == "" {
		return UploadResult{}, fmt.Errorf("%w: response has no url", ErrUpstreamRejected)
	}
	return UploadResult{URL: out.URL, FileID: out.FileID, Name: out.Name}, nil
}

func (k *ImageKit) writeForm(mw *multipart.Writer, r io.Reader, fileName string) error {
	fields := [][2]string{
		{"fileName", fileName},
		{"useUniqueFileName", "true"},
		{"tags", "backend_upload"},
	}
	if k.folder != "" {
		fields = append(fields, [2]string{"folder", k.folder})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// statusError classifies a non-success response. Throttling and server-side
// failures are outages; every other status is a rejection.
func statusError(resp *http.Response, body []byte) error {
	var e errorResponse
	msg := resp.Status
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = resp.Status + ": " + strings.TrimSpace(e.Message)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, msg)
	}
	return fmt.Errorf("%w: %s", ErrUpstreamRejected, msg)
}
