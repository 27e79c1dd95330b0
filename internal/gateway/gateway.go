// Package gateway forwards uploaded images to the external image host.
package gateway

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUpstreamUnavailable covers network failures and provider-side outages.
	ErrUpstreamUnavailable = errors.New("image host unavailable")
	// ErrUpstreamRejected means the provider refused the file or the request.
	ErrUpstreamRejected = errors.New("image host rejected upload")
	// ErrInvalidInput is returned before any request is made.
	ErrInvalidInput = errors.New("invalid upload input")
)

// UploadResult describes a file stored on the image host.
type UploadResult struct {
	URL    string
	FileID string
	Name   string // Remote name assigned by the host
}

// ImageGateway uploads a file to the image host. A call makes a single attempt.
type ImageGateway interface {
	Upload(ctx context.Context, r io.Reader, fileName string) (UploadResult, error)
}
