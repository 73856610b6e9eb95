// Package blobstore stores appointment attachments as opaque objects addressed
// by path and issues time-limited links to them.
package blobstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrEmptyKey     = errors.New("object key is required")
	ErrNoPublicURL  = errors.New("public url is not configured")
	ErrBadSignature = errors.New("link signature is invalid or expired")
)

// MaxFileSize is the maximum accepted object size (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// Store is the contract the attachment broker relies on. Put overwrites an
// existing object at the same key.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) (string, error)
}

// joinKey appends an escaped object key to base.
func joinKey(base, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}
