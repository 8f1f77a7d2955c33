package registry

import (
	"path/filepath"
	"strings"
)

// NameForPath derives the registry key for a project path: the absolute
// path, lowercased, with every non-alphanumeric rune replaced by an
// underscore. Any path becomes a valid section header, and distinct
// paths keep distinct names.
func NameForPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	var b strings.Builder
	for _, r := range strings.ToLower(abs) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DomainSlug turns a project directory basename into a domain label:
// lowercased, runs of non-alphanumerics collapsed to single hyphens,
// leading and trailing hyphens trimmed.
func DomainSlug(base string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// DomainForPath derives the local domain for a project path using the
// given TLD, e.g. /home/me/src/My Shop -> my-shop.test.
func DomainForPath(path, tld string) string {
	slug := DomainSlug(filepath.Base(path))
	if slug == "" {
		slug = "project"
	}
	return slug + "." + tld
}
