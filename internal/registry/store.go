package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/berth-dev/berth/internal/errors"
)

// Load reads and parses the registry file. A missing file is a first run
// and yields an empty registry. Anything the parser cannot fully account
// for is a corruption error: berth never guesses at shared state.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(), nil
		}
		return nil, errors.New("E010").
			WithDetail("The registry file could not be read: " + err.Error()).
			Wrap(err)
	}
	return Parse(data, path)
}

// Parse parses registry file contents. The path is used only for error
// locations.
func Parse(data []byte, path string) (*Registry, error) {
	reg := NewRegistry()

	var (
		current     *Record
		headerLines = make(map[string]int)
		seenKeys    map[string]bool
	)

	corrupt := func(line int, format string, args ...any) error {
		return errors.New("E010").
			WithLocation(path, line, 0).
			WithDetailf(format, args...).
			WithSuggestion("Fix the registry by hand or delete it and re-run berth init for each project")
	}

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimSuffix(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := line[1 : len(line)-1]
			if name == "" {
				return nil, corrupt(lineNum, "section header has an empty name")
			}
			if prev, dup := headerLines[name]; dup {
				return nil, corrupt(lineNum, "duplicate section %q (first defined on line %d)", name, prev)
			}
			headerLines[name] = lineNum
			current = &Record{Name: name}
			seenKeys = make(map[string]bool)
			reg.records[name] = current
			continue
		}

		eq := strings.Index(line, "=")
		if eq <= 0 {
			return nil, corrupt(lineNum, "line is neither a [section] header nor a key=value pair")
		}
		if current == nil {
			return nil, corrupt(lineNum, "key=value pair before any [section] header")
		}

		key := line[:eq]
		value := line[eq+1:]
		if seenKeys[key] {
			return nil, corrupt(lineNum, "duplicate key %q in section %q", key, current.Name)
		}
		seenKeys[key] = true

		switch {
		case key == "path":
			current.Path = value
		case key == "domain":
			current.Domain = value
		case key == "proxy_service":
			current.ProxyService = value
		case key == "proxy_secure":
			switch value {
			case "true":
				current.ProxySecure = true
			case "false":
				current.ProxySecure = false
			default:
				return nil, corrupt(lineNum, "proxy_secure must be true or false, got %q", value)
			}
		case strings.HasSuffix(key, "_PORT"):
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 || port > 65535 {
				return nil, corrupt(lineNum, "%s=%q is not a TCP port", key, value)
			}
			if current.Ports == nil {
				current.Ports = make(map[string]int)
			}
			current.Ports[key] = port
		default:
			if current.Extra == nil {
				current.Extra = make(map[string]string)
			}
			current.Extra[key] = value
		}
	}

	// Record-level and cross-record invariants. Violations on disk mean
	// some other writer broke the rules; refuse to continue.
	for _, name := range reg.Names() {
		rec := reg.records[name]
		if err := rec.Validate(); err != nil {
			return nil, errors.New("E010").
				WithLocation(path, headerLines[name], 0).
				WithDetail(err.Error()).
				WithSuggestion("Fix the registry by hand or delete it and re-run berth init for each project")
		}
	}
	if err := reg.validate(); err != nil {
		return nil, errors.New("E010").
			WithDetail(err.Error()).
			WithSuggestion("Fix the registry by hand or delete it and re-run berth init for each project")
	}

	return reg, nil
}

// Serialize renders the registry in its canonical on-disk form: records
// sorted by name, fixed key order inside each record, ports and extra
// keys sorted, one blank line between records.
func (g *Registry) Serialize() []byte {
	var b bytes.Buffer
	for i, rec := range g.Records() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s]\n", rec.Name)
		fmt.Fprintf(&b, "path=%s\n", rec.Path)
		if rec.Domain != "" {
			fmt.Fprintf(&b, "domain=%s\n", rec.Domain)
		}
		if rec.ProxyService != "" {
			fmt.Fprintf(&b, "proxy_service=%s\n", rec.ProxyService)
		}
		if rec.ProxySecure {
			b.WriteString("proxy_secure=true\n")
		}
		for _, name := range rec.PortNames() {
			fmt.Fprintf(&b, "%s=%d\n", name, rec.Ports[name])
		}
		extras := make([]string, 0, len(rec.Extra))
		for key := range rec.Extra {
			extras = append(extras, key)
		}
		sort.Strings(extras)
		for _, key := range extras {
			fmt.Fprintf(&b, "%s=%s\n", key, rec.Extra[key])
		}
	}
	return b.Bytes()
}

// Save writes the registry atomically: serialize to a temp file in the
// registry's directory, then rename over the target. Readers either see
// the old registry or the new one, never a torn write.
func Save(path string, reg *Registry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New("E011").
			WithDetail("Could not create " + dir + ": " + err.Error()).
			Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, ".registry.conf.tmp.*")
	if err != nil {
		return errors.New("E011").
			WithDetail("Could not create a temporary file in " + dir + ": " + err.Error()).
			Wrap(err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(reg.Serialize()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.New("E011").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.New("E011").Wrap(err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return errors.New("E011").Wrap(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.New("E011").
			WithDetail("Could not replace " + path + ": " + err.Error()).
			Wrap(err)
	}
	return nil
}
