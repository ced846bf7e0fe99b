package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nikbrunner/bmbox/internal/importer"
	"github.com/nikbrunner/bmbox/internal/model"
)

// ErrUnavailable is returned when no bookmark source can be reached.
var ErrUnavailable = errors.New("bookmarks provider unavailable")

// Provider supplies the bookmark tree. The returned tree is owned by the
// caller and must not be mutated by the provider afterwards.
type Provider interface {
	GetTree(ctx context.Context) (*model.Node, error)
}

// Format names the on-disk format of a bookmarks file.
type Format string

const (
	FormatAuto    Format = ""
	FormatChrome  Format = "chrome"
	FormatHTML    Format = "html"
	FormatUnknown Format = "unknown"
)

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "chrome", "json":
		return FormatChrome, nil
	case "html", "netscape":
		return FormatHTML, nil
	}
	return FormatUnknown, fmt.Errorf("unknown bookmarks format: %q", s)
}

// detectFormat picks a format from the file name.
func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatChrome
}

// FileProvider reads the tree from a bookmarks file on every call.
type FileProvider struct {
	path   string
	format Format
}

// NewFileProvider creates a FileProvider. With FormatAuto the format is
// picked from the file extension.
func NewFileProvider(path string, format Format) *FileProvider {
	if format == FormatAuto {
		format = detectFormat(path)
	}
	return &FileProvider{path: path, format: format}
}

// Path returns the watched file.
func (p *FileProvider) Path() string { return p.path }

// GetTree implements Provider. A missing file reports ErrUnavailable.
func (p *FileProvider) GetTree(ctx context.Context) (*model.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, p.path)
		}
		return nil, fmt.Errorf("open bookmarks: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch p.format {
	case FormatHTML:
		return importer.ParseHTMLBookmarks(f)
	default:
		return importer.ParseChromeBookmarks(f)
	}
}

// Static serves a fixed tree.
type Static struct {
	Root *model.Node
}

// GetTree implements Provider.
func (s Static) GetTree(context.Context) (*model.Node, error) {
	if s.Root == nil {
		return nil, ErrUnavailable
	}
	return s.Root, nil
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context) (*model.Node, error)

// GetTree implements Provider.
func (fn Func) GetTree(ctx context.Context) (*model.Node, error) {
	return fn(ctx)
}

// Unavailable always reports ErrUnavailable.
type Unavailable struct{}

// GetTree implements Provider.
func (Unavailable) GetTree(context.Context) (*model.Node, error) {
	return nil, ErrUnavailable
}

// chromeProfileDirs lists the Default profile directories of Chrome and
// Chromium relative to the user's home, per OS.
func chromeProfileDirs(goos, home string) []string {
	switch goos {
	case "darwin":
		base := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(base, "Google", "Chrome", "Default"),
			filepath.Join(base, "Chromium", "Default"),
		}
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return []string{
			filepath.Join(base, "Google", "Chrome", "User Data", "Default"),
			filepath.Join(base, "Chromium", "User Data", "Default"),
		}
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return []string{
			filepath.Join(base, "google-chrome", "Default"),
			filepath.Join(base, "chromium", "Default"),
		}
	}
}

// DetectChromeBookmarks returns the first existing Chrome or Chromium
// Bookmarks file for the current user.
func DetectChromeBookmarks() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	for _, dir := range chromeProfileDirs(runtime.GOOS, home) {
		path := filepath.Join(dir, "Bookmarks")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrUnavailable
}

// Open builds the provider for a configured file and format. An empty
// path auto-detects the Chrome profile; if nothing is found the provider
// is Unavailable rather than an error.
func Open(path, format string) (Provider, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if path == "" {
		detected, err := DetectChromeBookmarks()
		if err != nil {
			return Unavailable{}, nil
		}
		path = detected
		f = FormatChrome
	}
	return NewFileProvider(path, f), nil
}
