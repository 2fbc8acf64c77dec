package install

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw     string
		kind    RefKind
		repo    string
		branch  string
		wantErr bool
	}{
		{raw: "/opt/skills/weather", kind: RefLocal},
		{raw: "./weather", kind: RefLocal},
		{raw: "../weather", kind: RefLocal},
		{raw: "github:steipete/openclaw-skill", kind: RefGitHub, repo: "steipete/openclaw-skill", branch: "main"},
		{raw: "github:org/repo@dev", kind: RefGitHub, repo: "org/repo", branch: "dev"},
		{raw: "rememberall", kind: RefRegistry},
		{raw: "vendor/skill", kind: RefRegistry},
		{raw: "", wantErr: true},
		{raw: "github:", wantErr: true},
		{raw: "github:org/../etc", wantErr: true},
		{raw: "github:org/repo@", wantErr: true},
		{raw: "skill; rm -rf /", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref, err := ParseRef(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ref.Kind)
			assert.Equal(t, tt.repo, ref.Repo)
			assert.Equal(t, tt.branch, ref.Branch)
		})
	}
}

func TestCopyLocal(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.js"), []byte("fetch(u)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "util.js"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("/etc/passwd", filepath.Join(src, "passwd")))

	dst := t.TempDir()
	require.NoError(t, copyLocal(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "fetch(u)", string(data))
	assert.FileExists(t, filepath.Join(dst, "lib", "util.js"))

	_, err = os.Lstat(filepath.Join(dst, "passwd"))
	assert.True(t, os.IsNotExist(err), "symlinks must not be copied")
}

func TestCopyLocalErrors(t *testing.T) {
	err := copyLocal(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err = copyLocal(file, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

type zipEntry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if !strings.HasSuffix(e.name, "/") {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractZipStripsRoot(t *testing.T) {
	data := buildZip(t,
		zipEntry{name: "repo-main/"},
		zipEntry{name: "repo-main/SKILL.md", body: "# skill"},
		zipEntry{name: "repo-main/src/run.sh", body: "echo hi"},
	)

	dst := t.TempDir()
	require.NoError(t, extractZip(data, dst))

	assert.FileExists(t, filepath.Join(dst, "SKILL.md"))
	assert.FileExists(t, filepath.Join(dst, "src", "run.sh"))
	assert.NoDirExists(t, filepath.Join(dst, "repo-main"))
}

func TestExtractZipKeepsMixedRoots(t *testing.T) {
	data := buildZip(t,
		zipEntry{name: "a/x.js", body: "1"},
		zipEntry{name: "b/y.js", body: "2"},
	)

	dst := t.TempDir()
	require.NoError(t, extractZip(data, dst))
	assert.FileExists(t, filepath.Join(dst, "a", "x.js"))
	assert.FileExists(t, filepath.Join(dst, "b", "y.js"))
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	data := buildZip(t,
		zipEntry{name: "ok.txt", body: "fine"},
		zipEntry{name: "../evil.sh", body: "rm -rf /"},
	)

	parent := t.TempDir()
	dst := filepath.Join(parent, "q")
	require.NoError(t, os.Mkdir(dst, 0o755))

	require.Error(t, extractZip(data, dst))
	assert.NoFileExists(t, filepath.Join(parent, "evil.sh"))
}

func TestExtractZipInvalid(t *testing.T) {
	require.Error(t, extractZip([]byte("not a zip"), t.TempDir()))
}

func TestDownloadFollowsRedirect(t *testing.T) {
	archive := buildZip(t, zipEntry{name: "r-main/a.txt", body: "a"})
	mux := http.NewServeMux()
	mux.HandleFunc("/org/r/archive/refs/heads/main.zip", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/codeload/r.zip", http.StatusFound)
	})
	mux.HandleFunc("/codeload/r.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	ref, err := ParseRef("github:org/r")
	require.NoError(t, err)

	data, err := download(context.Background(), ts.Client(), archiveURL(ts.URL, ref))
	require.NoError(t, err)
	assert.Equal(t, archive, data)
}

func TestDownloadErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/big" {
			w.Header().Set("Content-Length", "104857600")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := download(context.Background(), ts.Client(), ts.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	_, err = download(context.Background(), ts.Client(), ts.URL+"/big")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestArchiveURL(t *testing.T) {
	ref := Ref{Repo: "org/repo", Branch: "main"}
	assert.Equal(t, "https://github.com/org/repo/archive/refs/heads/main.zip", archiveURL(DefaultGitHubURL+"/", ref))
}
