package sail

import (
	"context"
	"fmt"
	"strings"

	"github.com/berth-dev/berth/internal/errors"
)

// Docker wraps the docker CLI. All operations shell out; nothing talks to
// the daemon socket directly.
type Docker struct{}

func NewDocker() *Docker {
	return &Docker{}
}

// Installed reports whether the docker binary is on PATH.
func (d *Docker) Installed() bool {
	_, err := lookPath("docker")
	return err == nil
}

// Running checks that the Docker daemon answers. A reachable daemon is
// required before any compose command is attempted.
func (d *Docker) Running(ctx context.Context) error {
	if _, err := execOutput(ctx, "", "docker", "info", "--format", "{{.ServerVersion}}"); err != nil {
		return errors.New("E051").Wrap(err)
	}
	return nil
}

// Preflight verifies the docker binary exists and the daemon is up.
func (d *Docker) Preflight(ctx context.Context) error {
	if !d.Installed() {
		return errors.New("E050")
	}
	return d.Running(ctx)
}

// ComposeRun executes a one-off command in a compose service, equivalent to
// `docker compose run --rm <service> <cmd...>` in dir. Output streams to the
// terminal. When ctx is cancelled the whole process group is torn down, not
// just the docker client.
func (d *Docker) ComposeRun(ctx context.Context, dir, service string, cmdArgs ...string) error {
	args := append([]string{"compose", "run", "--rm", service}, cmdArgs...)
	h, err := startProcess(dir, "docker", args)
	if err != nil {
		return fmt.Errorf("starting docker compose run: %w", err)
	}
	return h.waitCtx(ctx)
}

// RemoveProjectVolumes deletes the named volumes compose created for the
// project at path. Volumes are found by the compose project label rather
// than by name prefix so renamed directories do not orphan them.
func (d *Docker) RemoveProjectVolumes(ctx context.Context, name, path string) error {
	project := ComposeProjectName(path)
	if project == "" {
		return nil
	}
	out, err := execOutput(ctx, "", "docker", "volume", "ls",
		"--filter", "label=com.docker.compose.project="+project, "--quiet")
	if err != nil {
		return fmt.Errorf("listing volumes for %s: %w", name, err)
	}
	var volumes []string
	for _, line := range strings.Split(out, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			volumes = append(volumes, v)
		}
	}
	if len(volumes) == 0 {
		return nil
	}
	args := append([]string{"volume", "rm", "--force"}, volumes...)
	if _, err := execOutput(ctx, "", "docker", args...); err != nil {
		return fmt.Errorf("removing volumes for %s: %w", name, err)
	}
	return nil
}

// ComposeProjectName derives the compose project name for a directory the
// way compose itself does: the base name lowercased, with anything outside
// [a-z0-9_-] dropped, and leading separators trimmed.
func ComposeProjectName(path string) string {
	base := strings.ToLower(baseName(path))
	var b strings.Builder
	for _, r := range base {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '_' || r == '-':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimRight(b.String(), "_-")
}

func baseName(path string) string {
	path = strings.TrimRight(path, "/\\")
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}
