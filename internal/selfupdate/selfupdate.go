// Package selfupdate replaces the running berth binary with the latest
// release. A JSON manifest lists the newest version and a checksummed
// download per platform; the binary is verified before it is moved into
// place, and the move is a same-directory rename so a crash can never leave
// a half-written executable.
package selfupdate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/berth-dev/berth/internal/errors"
)

// Asset is one downloadable build in the release manifest.
type Asset struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Manifest is the published release manifest.
type Manifest struct {
	ManifestVersion int              `json:"manifestVersion"`
	Latest          string           `json:"latest"`
	Assets          map[string]Asset `json:"assets"`
}

// Result describes the outcome of an update attempt.
type Result struct {
	Updated bool
	From    string
	To      string
}

// Updater checks for and applies releases.
type Updater struct {
	manifestURL string
	version     string
	client      *http.Client
	manifest    *Manifest

	// platform and execPath are fixed in production; tests point them
	// elsewhere.
	platform string
	execPath func() (string, error)
}

// New creates an Updater for the binary currently running currentVersion.
func New(manifestURL, currentVersion string) *Updater {
	return &Updater{
		manifestURL: manifestURL,
		version:     currentVersion,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		platform: runtime.GOOS + "-" + runtime.GOARCH,
		execPath: os.Executable,
	}
}

// FetchManifest downloads and parses the release manifest. The result is
// cached for the lifetime of the Updater.
func (u *Updater) FetchManifest(ctx context.Context) (*Manifest, error) {
	if u.manifest != nil {
		return u.manifest, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.manifestURL, nil)
	if err != nil {
		return nil, errors.New("E080").Wrap(err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, errors.New("E080").
			WithDetail("Could not reach the release server: " + err.Error()).
			WithSuggestion("Check your internet connection and try again.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("E080").
			WithDetailf("The release server returned status %d for %s.", resp.StatusCode, u.manifestURL)
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, errors.New("E080").
			WithDetail("Invalid release manifest: " + err.Error())
	}

	u.manifest = &manifest
	return &manifest, nil
}

// Check reports whether a newer release than the running version exists.
func (u *Updater) Check(ctx context.Context) (*Manifest, bool, error) {
	manifest, err := u.FetchManifest(ctx)
	if err != nil {
		return nil, false, err
	}
	return manifest, NewerVersion(u.version, manifest.Latest), nil
}

// Apply downloads, verifies, and installs the latest release. When the
// running version is already current it returns without side effects.
func (u *Updater) Apply(ctx context.Context) (*Result, error) {
	manifest, newer, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}
	if !newer {
		return &Result{Updated: false, From: u.version, To: manifest.Latest}, nil
	}

	asset, ok := manifest.Assets[u.platform]
	if !ok {
		return nil, errors.New("E080").
			WithDetailf("Release %s has no build for %s.", manifest.Latest, u.platform)
	}

	content, err := u.download(ctx, asset.URL)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(content)
	if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, asset.SHA256) {
		return nil, errors.New("E081").
			WithDetailf("Expected sha256 %s, downloaded %s.", asset.SHA256, got)
	}

	exe, err := u.execPath()
	if err != nil {
		return nil, errors.New("E082").Wrap(err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	if err := replaceExecutable(exe, content); err != nil {
		return nil, err
	}
	return &Result{Updated: true, From: u.version, To: manifest.Latest}, nil
}

func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, errors.New("E080").Wrap(err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, errors.New("E080").
			WithDetail("Download failed: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("E080").
			WithDetailf("Download of %s returned status %d.", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// replaceExecutable swaps the file at exe for content. The new binary is
// staged as a sibling temp file, the old one moved aside, and the staged
// one renamed in. Windows cannot overwrite a running executable, hence the
// move-aside step.
func replaceExecutable(exe string, content []byte) error {
	dir := filepath.Dir(exe)
	tmp, err := os.CreateTemp(dir, ".berth-update.*")
	if err != nil {
		return errors.New("E082").Wrap(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New("E082").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.New("E082").Wrap(err)
	}
	if err := os.Chmod(tmpName, 0o755); err != nil {
		os.Remove(tmpName)
		return errors.New("E082").Wrap(err)
	}

	old := exe + ".old"
	os.Remove(old)
	if err := os.Rename(exe, old); err != nil {
		os.Remove(tmpName)
		return errors.New("E082").Wrap(err)
	}
	if err := os.Rename(tmpName, exe); err != nil {
		// Put the original back; the worst case is the stale version.
		os.Rename(old, exe)
		os.Remove(tmpName)
		return errors.New("E082").Wrap(err)
	}
	os.Remove(old)
	return nil
}

// NewerVersion reports whether candidate is a newer release than current.
// Both sides are parsed as dotted numerics with an optional v prefix and
// prerelease suffix; when either does not parse, any difference counts as
// newer so dev builds still update.
func NewerVersion(current, candidate string) bool {
	cv, cok := parseVersion(current)
	nv, nok := parseVersion(candidate)
	if !cok || !nok {
		return current != candidate
	}
	for i := 0; i < 3; i++ {
		if nv[i] != cv[i] {
			return nv[i] > cv[i]
		}
	}
	return false
}

func parseVersion(s string) ([3]int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	fields := strings.Split(s, ".")
	if len(fields) == 0 || len(fields) > 3 {
		return [3]int{}, false
	}
	var v [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return [3]int{}, false
		}
		v[i] = n
	}
	return v, true
}

// String renders a Result for the terminal.
func (r *Result) String() string {
	if !r.Updated {
		return fmt.Sprintf("berth %s is up to date", r.From)
	}
	return fmt.Sprintf("updated berth %s -> %s", r.From, r.To)
}
