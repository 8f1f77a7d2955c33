// Package envfile rewrites a project's .env with allocated ports and
// derived URLs while leaving every other line untouched.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/berth-dev/berth/internal/errors"
)

// The URL keys berth manages alongside the allocated ports. Sail reads
// APP_URL, Vite reads VITE_APP_URL for its HMR origin, and asset helpers
// read ASSET_URL.
const (
	KeyAppURL     = "APP_URL"
	KeyAppDomain  = "APP_DOMAIN"
	KeyAssetURL   = "ASSET_URL"
	KeyViteAppURL = "VITE_APP_URL"
)

// URLs are the derived URL values written into .env.
type URLs struct {
	AppURL     string
	AppDomain  string
	AssetURL   string
	ViteAppURL string
}

// DeriveURLs computes the URL values for a provisioned project. With a
// domain the proxy tool fronts the app on standard ports; without one
// the app is reached directly on its allocated APP_PORT.
func DeriveURLs(domain string, secure bool, allocated map[string]int) URLs {
	var appURL string
	if domain != "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		appURL = scheme + "://" + domain
	} else {
		domain = "localhost"
		if port, ok := firstPort(allocated); ok {
			appURL = fmt.Sprintf("http://localhost:%d", port)
		} else {
			appURL = "http://localhost"
		}
	}
	return URLs{
		AppURL:     appURL,
		AppDomain:  domain,
		AssetURL:   appURL,
		ViteAppURL: appURL,
	}
}

// firstPort returns APP_PORT when allocated, falling back to the first
// port by variable name.
func firstPort(allocated map[string]int) (int, bool) {
	if port, ok := allocated["APP_PORT"]; ok {
		return port, true
	}
	names := make([]string, 0, len(allocated))
	for name := range allocated {
		names = append(names, name)
	}
	if len(names) == 0 {
		return 0, false
	}
	sort.Strings(names)
	return allocated[names[0]], true
}

// Exists reports whether the env file exists.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// HasPorts reports whether the env file already assigns any *_PORT
// variable. Commented lines do not count.
func HasPorts(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, _, ok := splitAssign(line)
		if ok && strings.HasSuffix(key, "_PORT") {
			return true, nil
		}
	}
	return false, nil
}

// SetPorts rewrites the env file with the allocated ports and URLs. The
// managed block goes at the top of the file: port assignments in name
// order, then the URL keys. Pre-existing assignments to managed keys are
// dropped and regenerated; every other line is preserved byte for byte.
func SetPorts(path string, allocated map[string]int, urls URLs) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("E033").
			WithDetail("Could not read " + path + ": " + err.Error()).
			Wrap(err)
	}

	values := managedValues(allocated, urls)
	hadTrailingNewline := strings.HasSuffix(string(data), "\n")

	lines := strings.Split(string(data), "\n")
	if hadTrailingNewline && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if key, _, ok := splitAssign(line); ok {
			if _, managed := values[key]; managed {
				continue
			}
		}
		kept = append(kept, line)
	}

	block := make([]string, 0, len(values)+1)
	for _, key := range managedOrder(allocated) {
		block = append(block, key+"="+values[key])
	}
	if len(kept) > 0 && kept[0] != "" {
		block = append(block, "")
	}

	out := strings.Join(append(block, kept...), "\n")
	if hadTrailingNewline {
		out += "\n"
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return errors.New("E033").
			WithDetail("Could not write " + path + ": " + err.Error()).
			Wrap(err)
	}
	return nil
}

// Strip removes assignments to the given keys. Used by cleanup to take
// berth's values back out of a project's .env.
func Strip(path string, keys []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		drop[key] = true
	}

	lines := strings.Split(string(data), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if key, _, ok := splitAssign(line); ok && drop[key] {
			continue
		}
		kept = append(kept, line)
	}

	return os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o644)
}

// ManagedKeys returns every key berth writes for the given allocation:
// the port variables plus the URL keys.
func ManagedKeys(allocated map[string]int) []string {
	return managedOrder(allocated)
}

func managedOrder(allocated map[string]int) []string {
	names := make([]string, 0, len(allocated)+4)
	for name := range allocated {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, KeyAppURL, KeyAppDomain, KeyAssetURL, KeyViteAppURL)
}

func managedValues(allocated map[string]int, urls URLs) map[string]string {
	values := make(map[string]string, len(allocated)+4)
	for name, port := range allocated {
		values[name] = fmt.Sprintf("%d", port)
	}
	values[KeyAppURL] = urls.AppURL
	values[KeyAppDomain] = urls.AppDomain
	values[KeyAssetURL] = urls.AssetURL
	values[KeyViteAppURL] = urls.ViteAppURL
	return values
}

// splitAssign splits a KEY=value line. Keys are shell-style identifiers;
// anything else, including comments, is not an assignment.
func splitAssign(line string) (key, value string, ok bool) {
	eq := strings.Index(line, "=")
	if eq <= 0 {
		return "", "", false
	}
	key = line[:eq]
	for i, r := range key {
		if r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return "", "", false
	}
	return key, line[eq+1:], true
}
