package selfupdate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/berth-dev/berth/internal/errors"
)

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// newReleaseServer serves a manifest for latest plus the binary itself
// under a test-platform asset. manifestHits counts manifest fetches.
func newReleaseServer(t *testing.T, latest string, binary []byte, sha string) (*httptest.Server, *int) {
	t.Helper()
	hits := new(int)
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/releases.json", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		m := Manifest{
			ManifestVersion: 1,
			Latest:          latest,
			Assets: map[string]Asset{
				"test-platform": {URL: srv.URL + "/download", SHA256: sha},
			},
		}
		json.NewEncoder(w).Encode(m)
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write(binary)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hits
}

func testUpdater(t *testing.T, srv *httptest.Server, current string, exe string) *Updater {
	t.Helper()
	u := New(srv.URL+"/releases.json", current)
	u.platform = "test-platform"
	u.execPath = func() (string, error) { return exe, nil }
	return u
}

func TestNewerVersion(t *testing.T) {
	tests := []struct {
		current   string
		candidate string
		want      bool
	}{
		{"1.2.3", "1.2.4", true},
		{"1.2.3", "1.2.3", false},
		{"1.2.4", "1.2.3", false},
		{"1.9.9", "1.10.0", true},
		{"1.10.0", "1.9.9", false},
		{"v1.2.3", "1.3.0", true},
		{"1.2", "1.2.1", true},
		{"2.0.0-rc.1", "2.0.0", false},
		{"dev", "1.0.0", true},
		{"dev", "dev", false},
	}
	for _, tt := range tests {
		if got := NewerVersion(tt.current, tt.candidate); got != tt.want {
			t.Errorf("NewerVersion(%q, %q) = %t, want %t", tt.current, tt.candidate, got, tt.want)
		}
	}
}

func TestFetchManifest(t *testing.T) {
	binary := []byte("binary-v2")
	srv, hits := newReleaseServer(t, "1.1.0", binary, checksum(binary))
	u := testUpdater(t, srv, "1.0.0", "")

	m, err := u.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest() error = %v", err)
	}
	if m.Latest != "1.1.0" {
		t.Errorf("Latest = %q, want 1.1.0", m.Latest)
	}
	if _, ok := m.Assets["test-platform"]; !ok {
		t.Errorf("Assets = %v, missing test-platform", m.Assets)
	}

	// The manifest is cached per Updater.
	if _, err := u.FetchManifest(context.Background()); err != nil {
		t.Fatal(err)
	}
	if *hits != 1 {
		t.Errorf("manifest fetched %d times, want 1", *hits)
	}
}

func TestFetchManifest_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()
		u := New(srv.URL, "1.0.0")
		if _, err := u.FetchManifest(context.Background()); !errors.Is(err, "E080") {
			t.Errorf("error = %v, want E080", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{"))
		}))
		defer srv.Close()
		u := New(srv.URL, "1.0.0")
		if _, err := u.FetchManifest(context.Background()); !errors.Is(err, "E080") {
			t.Errorf("error = %v, want E080", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		u := New(url, "1.0.0")
		if _, err := u.FetchManifest(context.Background()); !errors.Is(err, "E080") {
			t.Errorf("error = %v, want E080", err)
		}
	})
}

func TestCheck(t *testing.T) {
	binary := []byte("binary-v2")
	srv, _ := newReleaseServer(t, "1.1.0", binary, checksum(binary))

	u := testUpdater(t, srv, "1.0.0", "")
	if _, newer, err := u.Check(context.Background()); err != nil || !newer {
		t.Errorf("Check() = newer=%t err=%v, want newer=true", newer, err)
	}

	u = testUpdater(t, srv, "1.1.0", "")
	if _, newer, err := u.Check(context.Background()); err != nil || newer {
		t.Errorf("Check() = newer=%t err=%v, want newer=false", newer, err)
	}
}

func TestApply_InstallsNewBinary(t *testing.T) {
	binary := []byte("#!/bin/true new-binary-1.1.0")
	srv, _ := newReleaseServer(t, "1.1.0", binary, checksum(binary))

	dir := t.TempDir()
	exe := filepath.Join(dir, "berth")
	if err := os.WriteFile(exe, []byte("old-binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := testUpdater(t, srv, "1.0.0", exe)
	res, err := u.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !res.Updated || res.To != "1.1.0" {
		t.Errorf("Result = %+v, want updated to 1.1.0", res)
	}

	got, err := os.ReadFile(exe)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(binary) {
		t.Errorf("installed binary = %q, want downloaded content", got)
	}
	info, err := os.Stat(exe)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}

	// No temp or .old leftovers next to the binary.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("leftover files after update: %v", names)
	}
}

func TestApply_UpToDate(t *testing.T) {
	binary := []byte("same")
	srv, _ := newReleaseServer(t, "1.1.0", binary, checksum(binary))

	dir := t.TempDir()
	exe := filepath.Join(dir, "berth")
	if err := os.WriteFile(exe, []byte("current-binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := testUpdater(t, srv, "1.1.0", exe)
	res, err := u.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Updated {
		t.Error("Updated = true for current version")
	}
	got, _ := os.ReadFile(exe)
	if string(got) != "current-binary" {
		t.Errorf("binary modified on no-op update: %q", got)
	}
}

func TestApply_ChecksumMismatch(t *testing.T) {
	binary := []byte("tampered")
	srv, _ := newReleaseServer(t, "1.1.0", binary, checksum([]byte("published")))

	dir := t.TempDir()
	exe := filepath.Join(dir, "berth")
	if err := os.WriteFile(exe, []byte("old-binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := testUpdater(t, srv, "1.0.0", exe)
	_, err := u.Apply(context.Background())
	if !errors.Is(err, "E081") {
		t.Fatalf("Apply() error = %v, want E081", err)
	}

	got, _ := os.ReadFile(exe)
	if string(got) != "old-binary" {
		t.Errorf("binary replaced despite checksum mismatch: %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("leftover files after failed update: %d entries", len(entries))
	}
}

func TestApply_NoPlatformBuild(t *testing.T) {
	binary := []byte("bin")
	srv, _ := newReleaseServer(t, "1.1.0", binary, checksum(binary))

	u := testUpdater(t, srv, "1.0.0", "")
	u.platform = "plan9-386"
	_, err := u.Apply(context.Background())
	if !errors.Is(err, "E080") {
		t.Fatalf("Apply() error = %v, want E080", err)
	}
	be, ok := err.(*errors.BerthError)
	if !ok || !strings.Contains(be.Detail, "plan9-386") {
		t.Errorf("detail = %v, want platform name", err)
	}
}

func TestResultString(t *testing.T) {
	up := &Result{Updated: true, From: "1.0.0", To: "1.1.0"}
	if got := up.String(); !strings.Contains(got, "1.0.0") || !strings.Contains(got, "1.1.0") {
		t.Errorf("String() = %q", got)
	}
	same := &Result{Updated: false, From: "1.1.0", To: "1.1.0"}
	if got := same.String(); !strings.Contains(got, "up to date") {
		t.Errorf("String() = %q", got)
	}
}
