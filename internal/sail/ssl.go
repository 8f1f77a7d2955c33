package sail

import (
	"fmt"
	"os"
	"path/filepath"
)

// CertLinkDir is where certificate symlinks land inside a project, relative
// to the project root. Containers mount the project tree, so links placed
// here are visible to in-container tooling.
const CertLinkDir = "storage/certs"

// LinkCerts symlinks the proxy's certificate and key for domain into
// projectDir/storage/certs/<domain>.crt and .key. Existing links or files at
// the target paths are replaced. Fails if the sources do not exist, which
// the caller reports as a warning.
func LinkCerts(projectDir, domain, certPath, keyPath string) error {
	if _, err := os.Stat(certPath); err != nil {
		return fmt.Errorf("certificate for %s not found: %w", domain, err)
	}
	if _, err := os.Stat(keyPath); err != nil {
		return fmt.Errorf("key for %s not found: %w", domain, err)
	}

	dir := filepath.Join(projectDir, filepath.FromSlash(CertLinkDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	links := map[string]string{
		filepath.Join(dir, domain+".crt"): certPath,
		filepath.Join(dir, domain+".key"): keyPath,
	}
	for link, target := range links {
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("replacing %s: %w", link, err)
		}
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("linking %s: %w", link, err)
		}
	}
	return nil
}

// UnlinkCerts removes the certificate symlinks for domain if present.
func UnlinkCerts(projectDir, domain string) error {
	dir := filepath.Join(projectDir, filepath.FromSlash(CertLinkDir))
	for _, name := range []string{domain + ".crt", domain + ".key"} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
