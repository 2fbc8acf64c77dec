package install

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxArchiveSize bounds a downloaded archive.
	MaxArchiveSize = 50 * 1024 * 1024

	// MaxArchiveFiles bounds the entries extracted from an archive.
	MaxArchiveFiles = 1000

	// DownloadTimeout bounds a single archive download.
	DownloadTimeout = 30 * time.Second

	// DefaultGitHubURL is where github: references are downloaded from.
	DefaultGitHubURL = "https://github.com"
)

// RefKind says how a skill reference is fetched.
type RefKind int

const (
	RefRegistry RefKind = iota
	RefLocal
	RefGitHub
)

func (k RefKind) String() string {
	switch k {
	case RefLocal:
		return "local"
	case RefGitHub:
		return "github"
	default:
		return "registry"
	}
}

var githubRepoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Ref is a parsed skill reference.
type Ref struct {
	Raw    string
	Kind   RefKind
	Path   string // local path
	Repo   string // owner/name for github refs
	Branch string
}

// ParseRef classifies a skill reference: absolute or ./ ../ paths are local,
// github:owner/repo[@branch] is a GitHub archive, anything else is a
// registry slug handed to the installer.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("skill reference is required")
	}

	switch {
	case filepath.IsAbs(raw) || strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../"):
		return Ref{Raw: raw, Kind: RefLocal, Path: raw}, nil

	case strings.HasPrefix(raw, "github:"):
		repo := strings.TrimPrefix(raw, "github:")
		branch := "main"
		if i := strings.LastIndex(repo, "@"); i >= 0 {
			repo, branch = repo[:i], repo[i+1:]
		}
		if !githubRepoPattern.MatchString(repo) || strings.Contains(repo, "..") {
			return Ref{}, fmt.Errorf("invalid github reference %q (want github:owner/repo)", raw)
		}
		if branch == "" || strings.ContainsAny(branch, " \t?#") {
			return Ref{}, fmt.Errorf("invalid branch in %q", raw)
		}
		return Ref{Raw: raw, Kind: RefGitHub, Repo: repo, Branch: branch}, nil
	}

	if strings.ContainsAny(raw, " \t\n;|&$`") {
		return Ref{}, fmt.Errorf("invalid skill reference %q", raw)
	}
	return Ref{Raw: raw, Kind: RefRegistry}, nil
}

// copyLocal copies the regular files and directories under src into dst.
// Symlinks and special files are left behind.
func copyLocal(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("local path not found: %s", src)
		}
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local path is not a directory: %s", src)
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			return copyFile(p, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// archiveURL is the branch archive download URL for a github ref.
func archiveURL(base string, ref Ref) string {
	return strings.TrimRight(base, "/") + "/" + ref.Repo + "/archive/refs/heads/" + ref.Branch + ".zip"
}

// download fetches url into memory, refusing bodies over MaxArchiveSize.
// Redirects are followed by the client.
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxArchiveSize {
		return nil, fmt.Errorf("archive too large: %d bytes (max %d)", resp.ContentLength, MaxArchiveSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if len(data) > MaxArchiveSize {
		return nil, fmt.Errorf("archive exceeds %d bytes", MaxArchiveSize)
	}
	return data, nil
}

// extractZip unpacks data into dst. A single top-level directory, as in
// GitHub branch archives, is stripped. Entries that would land outside
// dst and symlinks are rejected.
func extractZip(data []byte, dst string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if len(zr.File) > MaxArchiveFiles {
		return fmt.Errorf("archive has %d entries (max %d)", len(zr.File), MaxArchiveFiles)
	}

	prefix := commonRoot(zr.File)
	var total int64

	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		mode := f.Mode()
		if mode&fs.ModeSymlink != 0 {
			continue
		}

		target := filepath.Join(dst, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !mode.IsRegular() {
			continue
		}

		total += int64(f.UncompressedSize64)
		if total > 4*MaxArchiveSize {
			return fmt.Errorf("archive expands beyond %d bytes", 4*MaxArchiveSize)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	// Declared sizes can lie.
	if _, err := io.Copy(out, io.LimitReader(rc, int64(f.UncompressedSize64))); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// commonRoot returns "dir/" when every entry lives under one top-level
// directory, or "" otherwise.
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		first, _, found := strings.Cut(f.Name, "/")
		if !found {
			return ""
		}
		if root == "" {
			root = first
		} else if first != root {
			return ""
		}
	}
	if root == "" || root == "." || root == ".." {
		return ""
	}
	return path.Clean(root) + "/"
}
