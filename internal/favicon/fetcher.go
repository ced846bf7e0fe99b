package favicon

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// maxIconBytes caps how much of a favicon response is read.
const maxIconBytes = 1 << 20

var (
	ErrFetch  = errors.New("favicon fetch failed")
	ErrDecode = errors.New("favicon decode failed")
)

// Fetcher loads a favicon and returns it as a data URL.
type Fetcher interface {
	Fetch(ctx context.Context, iconURL string) (string, error)
}

// HTTPFetcher fetches icons over HTTP and re-encodes them as PNG data URLs.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "bmbox-favicon/1.0",
	}
}

// Fetch downloads iconURL, draws it into an offscreen bitmap and encodes
// the bitmap as a PNG data URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, iconURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil || len(raw) == 0 {
		return "", fmt.Errorf("%w: empty body", ErrFetch)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v (ct=%s)", ErrDecode, err, resp.Header.Get("Content-Type"))
	}

	return EncodeDataURL(img)
}

// EncodeDataURL draws img onto a fresh RGBA bitmap of the same size and
// returns it as a base64 PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", fmt.Errorf("%w: empty image", ErrDecode)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&out, canvas); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, iconURL string) (string, error)

func (fn FetcherFunc) Fetch(ctx context.Context, iconURL string) (string, error) {
	return fn(ctx, iconURL)
}
