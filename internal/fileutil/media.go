package fileutil

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// MediaPrefix is the public path under which stored recordings are referenced.
const MediaPrefix = "/storage/videos/"

var (
	// ErrEmptyReference indicates a capture has no raw media.
	ErrEmptyReference = errors.New("media reference is empty")
	// ErrOutsideRoot indicates a reference resolving outside the storage root.
	ErrOutsideRoot = errors.New("media reference escapes storage root")
	// ErrUnsupportedMedia indicates a file type the pipeline does not accept.
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

var mediaExtensions = map[string]struct{}{
	".webm": {},
	".mp4":  {},
	".mov":  {},
	".m4a":  {},
	".mp3":  {},
	".wav":  {},
}

// MediaLocation is a resolved, provider-addressable media reference. Exactly
// one of Path or URL is set.
type MediaLocation struct {
	Path string
	URL  string
}

// Remote reports whether the media can be handed to the provider by URL.
func (m MediaLocation) Remote() bool {
	return m.URL != ""
}

func (m MediaLocation) String() string {
	if m.Remote() {
		return m.URL
	}
	return m.Path
}

// ResolveMedia maps a stored media reference to a local path under root or a
// remote URL. Local paths that resolve outside root, directly or through
// symlinks, return ErrOutsideRoot.
func ResolveMedia(root, ref string) (MediaLocation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return MediaLocation{}, ErrEmptyReference
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return MediaLocation{URL: ref}, nil
	}
	if strings.TrimSpace(root) == "" {
		return MediaLocation{}, fmt.Errorf("resolve media: storage root not configured")
	}

	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return MediaLocation{}, fmt.Errorf("resolve storage root: %w", err)
	}

	var candidate string
	switch {
	case strings.HasPrefix(ref, MediaPrefix):
		candidate = filepath.Join(absRoot, strings.TrimPrefix(ref, MediaPrefix))
	case filepath.IsAbs(ref):
		candidate = filepath.Clean(ref)
	default:
		candidate = filepath.Join(absRoot, ref)
	}

	if !within(absRoot, candidate) {
		return MediaLocation{}, fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}

	// A symlink inside the root may still point elsewhere.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		realRoot := absRoot
		if r, err := filepath.EvalSymlinks(absRoot); err == nil {
			realRoot = r
		}
		if !within(realRoot, resolved) {
			return MediaLocation{}, fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
		}
	}

	return MediaLocation{Path: candidate}, nil
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ImportMedia copies src into root as <name><ext> and returns the public
// reference stored on the capture.
func ImportMedia(root, name, src string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if _, ok := mediaExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, ext)
	}
	name = sanitizeName(name)
	if name == "" {
		return "", fmt.Errorf("import media: empty target name")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create storage root: %w", err)
	}
	filename := name + ext
	if err := CopyFileVerified(src, filepath.Join(root, filename)); err != nil {
		return "", fmt.Errorf("import media: %w", err)
	}
	return MediaPrefix + filename, nil
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
