package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte(strings.Repeat("capture", 1024))
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatal("content mismatch after verified copy")
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestResolveMedia(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name    string
		ref     string
		want    string
		remote  bool
		wantErr error
	}{
		{name: "public prefix", ref: "/storage/videos/abc.webm", want: filepath.Join(root, "abc.webm")},
		{name: "relative", ref: "sub/clip.mp4", want: filepath.Join(root, "sub", "clip.mp4")},
		{name: "absolute inside", ref: filepath.Join(root, "x.mp4"), want: filepath.Join(root, "x.mp4")},
		{name: "remote", ref: "https://cdn.example.com/a.mp4", want: "https://cdn.example.com/a.mp4", remote: true},
		{name: "traversal prefix", ref: "/storage/videos/../../etc/passwd", wantErr: ErrOutsideRoot},
		{name: "traversal relative", ref: "../outside.mp4", wantErr: ErrOutsideRoot},
		{name: "absolute outside", ref: "/etc/passwd", wantErr: ErrOutsideRoot},
		{name: "root itself", ref: root, wantErr: ErrOutsideRoot},
		{name: "empty", ref: "  ", wantErr: ErrEmptyReference},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := ResolveMedia(root, tc.ref)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v (loc=%+v)", tc.wantErr, err, loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveMedia: %v", err)
			}
			if loc.Remote() != tc.remote || loc.String() != tc.want {
				t.Fatalf("unexpected location %+v, want %q remote=%v", loc, tc.want, tc.remote)
			}
		})
	}
}

func TestResolveMediaRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.mp4")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link.mp4")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := ResolveMedia(root, "/storage/videos/link.mp4"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected symlink escape to be rejected, got %v", err)
	}
}

func TestImportMedia(t *testing.T) {
	root := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "Recording.WEBM")
	if err := os.WriteFile(src, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}

	ref, err := ImportMedia(root, "cap-../1", src)
	if err != nil {
		t.Fatalf("ImportMedia: %v", err)
	}
	if ref != "/storage/videos/cap-1.webm" {
		t.Fatalf("unexpected reference %q", ref)
	}
	loc, err := ResolveMedia(root, ref)
	if err != nil {
		t.Fatalf("ResolveMedia: %v", err)
	}
	if _, err := os.Stat(loc.Path); err != nil {
		t.Fatalf("expected imported file: %v", err)
	}

	bad := filepath.Join(srcDir, "notes.txt")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportMedia(root, "cap-2", bad); !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected unsupported media error, got %v", err)
	}
}
