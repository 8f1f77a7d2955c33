package sail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/berth-dev/berth/internal/errors"
)

// Supported proxy tools, in detection order.
const (
	ProxyValet = "valet"
	ProxyHerd  = "herd"
)

// Proxy wraps a Valet-compatible site proxy (Laravel Valet or Herd). Both
// expose the same CLI surface: link, unlink, secure, unsecure, tld.
type Proxy struct {
	tool string
	home string
}

// DetectProxy finds a proxy tool on PATH, preferring valet over herd.
// Returns E052 when neither is installed; callers treat that as a warning
// and provision without a local domain.
func DetectProxy() (*Proxy, error) {
	home, _ := os.UserHomeDir()
	for _, tool := range []string{ProxyValet, ProxyHerd} {
		if _, err := lookPath(tool); err == nil {
			return &Proxy{tool: tool, home: home}, nil
		}
	}
	return nil, errors.New("E052")
}

func (p *Proxy) Name() string {
	return p.tool
}

// TLD reports the proxy's configured top level domain, or "" when the tool
// does not answer. Callers fall back to the configured default.
func (p *Proxy) TLD(ctx context.Context) string {
	out, err := execOutput(ctx, "", p.tool, "tld")
	if err != nil {
		return ""
	}
	// Some versions print extra notices; the TLD is the last word of the
	// last non-empty line.
	lines := strings.Fields(out)
	if len(lines) == 0 {
		return ""
	}
	return strings.Trim(lines[len(lines)-1], ".")
}

// Register links dir under the given site name and optionally provisions an
// HTTPS certificate for it. The name is the domain without its TLD.
func (p *Proxy) Register(ctx context.Context, dir, name string, secure bool) error {
	if err := execRun(ctx, dir, p.tool, "link", name); err != nil {
		return fmt.Errorf("%s link %s: %w", p.tool, name, err)
	}
	if secure {
		if err := execRun(ctx, dir, p.tool, "secure", name); err != nil {
			return fmt.Errorf("%s secure %s: %w", p.tool, name, err)
		}
	}
	return nil
}

// Unregister removes the site link and its certificate for a full domain.
// Both steps run even if the first fails; the first error wins.
func (p *Proxy) Unregister(ctx context.Context, domain string) error {
	name := SiteName(domain)
	var first error
	if err := execRun(ctx, "", p.tool, "unsecure", name); err != nil {
		first = fmt.Errorf("%s unsecure %s: %w", p.tool, name, err)
	}
	if err := execRun(ctx, "", p.tool, "unlink", name); err != nil && first == nil {
		first = fmt.Errorf("%s unlink %s: %w", p.tool, name, err)
	}
	return first
}

// CertPaths reports where the proxy keeps the certificate and key for a
// domain. The files exist only after a successful secure.
func (p *Proxy) CertPaths(domain string) (cert, key string) {
	dir := p.certDir()
	return filepath.Join(dir, domain+".crt"), filepath.Join(dir, domain+".key")
}

func (p *Proxy) certDir() string {
	switch p.tool {
	case ProxyHerd:
		return filepath.Join(p.home, "Library", "Application Support", "Herd", "config", "valet", "Certificates")
	default:
		return filepath.Join(p.home, ".config", "valet", "Certificates")
	}
}

// SiteName strips the TLD from a full domain: "my-shop.test" becomes
// "my-shop". Site slugs never contain dots, so everything before the last
// dot is the name.
func SiteName(domain string) string {
	if i := strings.LastIndex(domain, "."); i > 0 {
		return domain[:i]
	}
	return domain
}
