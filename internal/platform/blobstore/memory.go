package blobstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type storedBlob struct {
	contentType string
	content     []byte
	storedAt    time.Time
}

// MemoryStore is a thread-safe, in-process Store for development and tests.
// Its signed links point at Handler, which verifies an HMAC over key and expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]*storedBlob
	baseURL string
	secret  []byte
	now     func() time.Time

	// publicBase, when set, makes PublicURL return links that skip signing.
	publicBase string
}

// NewMemoryStore returns a store whose links are rooted at baseURL
// (for example "http://localhost:8000/blobs").
func NewMemoryStore(baseURL string, secret []byte) *MemoryStore {
	return &MemoryStore{
		blobs:   make(map[string]*storedBlob),
		baseURL: baseURL,
		secret:  secret,
		now:     time.Now,
	}
}

// WithPublicBase enables PublicURL.
func (s *MemoryStore) WithPublicBase(base string) *MemoryStore {
	s.publicBase = base
	return s
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxFileSize+1))
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return ErrFileTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.mu.Lock()
	s.blobs[key] = &storedBlob{contentType: contentType, content: data, storedAt: s.now().UTC()}
	s.mu.Unlock()
	return nil
}

// Get returns the stored bytes for key.
func (s *MemoryStore) Get(key string) ([]byte, string, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", ErrBlobNotFound
	}
	return b.content, b.contentType, nil
}

func (s *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	s.mu.RLock()
	_, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrBlobNotFound
	}

	exp := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", s.sign(key, exp))
	return joinKey(s.baseURL, key) + "?" + q.Encode(), nil
}

func (s *MemoryStore) PublicURL(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if s.publicBase == "" {
		return "", ErrNoPublicURL
	}
	return joinKey(s.publicBase, key), nil
}

func (s *MemoryStore) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a link signature produced by SignedURL.
func (s *MemoryStore) Verify(key, expParam, sig string) error {
	exp, err := strconv.ParseInt(expParam, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if s.now().Unix() > exp {
		return ErrBadSignature
	}
	want, err := hex.DecodeString(s.sign(key, exp))
	if err != nil {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(want, got) {
		return ErrBadSignature
	}
	return nil
}

// Handler serves MemoryStore links.
type Handler struct {
	store *MemoryStore
}

func NewHandler(store *MemoryStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts GET /blobs/* on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/blobs/*", h.download)
}

func (h *Handler) download(c echo.Context) error {
	key, err := url.PathUnescape(c.Param("*"))
	if err != nil || key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid object key")
	}
	if err := h.store.Verify(key, c.QueryParam("exp"), c.QueryParam("sig")); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	data, contentType, err := h.store.Get(key)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.Stream(http.StatusOK, contentType, bytes.NewReader(data))
}
