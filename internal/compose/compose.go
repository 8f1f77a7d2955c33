// Package compose locates a project's compose file and extracts the
// port variables it declares.
package compose

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/berth-dev/berth/internal/errors"
	"github.com/berth-dev/berth/internal/ports"
)

// FileNames are the compose file names berth recognizes, in search
// order. Sail generates docker-compose.yml.
var FileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// portVarRe matches ${NAME_PORT:-default} interpolations. Only the form
// with a declared default counts as a port variable; a bare ${NAME_PORT}
// gives the allocator nothing to scan from.
var portVarRe = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*_PORT):-(\d+)\}`)

// Find returns the path of the project's compose file.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.New("E030").
		WithDetail("Looked for " + FileNames[0] + " and its variants in " + dir).
		WithSuggestion("Run this from a Laravel Sail project, or pass --path")
}

// ExtractPortVars returns the port variables declared in the compose
// file, in order of first appearance. A variable interpolated in several
// places keeps the default from its first occurrence.
func ExtractPortVars(path string) ([]ports.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf(errors.CategoryProject, "could not read %s: %v", path, err)
	}

	var reqs []ports.Request
	seen := make(map[string]bool)
	for _, match := range portVarRe.FindAllSubmatch(data, -1) {
		name := string(match[1])
		if seen[name] {
			continue
		}
		seen[name] = true

		def, err := strconv.Atoi(string(match[2]))
		if err != nil || def <= 0 || def > ports.MaxPort {
			// \d+ guarantees a number; this guards range only
			continue
		}
		reqs = append(reqs, ports.Request{Name: name, Default: def})
	}
	return reqs, nil
}
