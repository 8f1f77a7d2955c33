package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/registry"
	"github.com/berth-dev/berth/internal/watch"
)

func listCmd() *cobra.Command {
	var (
		asJSON    bool
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		Long: `List every registered project with its domain, allocated ports,
and path.

Examples:
  berth list
  berth list --json
  berth list --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, asJSON, watchMode)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the registry as JSON")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-render whenever the registry changes")

	return cmd
}

func runList(cmd *cobra.Command, asJSON, watchMode bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The registry is replaced by rename, never rewritten in place, so a
	// lockless read always sees a complete file.
	if err := renderList(cfg, asJSON); err != nil {
		return err
	}
	if !watchMode {
		return nil
	}

	w := watch.NewWatcher(cfg.RegistryPath(), 0)
	w.OnChange(func() {
		fmt.Println()
		if err := renderList(cfg, asJSON); err != nil {
			warn("%v", err)
		}
	})

	if !asJSON {
		fmt.Println()
		info("Watching for registry changes, Ctrl-C to stop")
	}
	err = w.Start(cmd.Context())
	if err != nil && cmd.Context().Err() == nil {
		return err
	}
	// Ctrl-C is the normal way to leave watch mode.
	return nil
}

func renderList(cfg *config.Config, asJSON bool) error {
	reg, err := registry.Load(cfg.RegistryPath())
	if err != nil {
		return err
	}
	if asJSON {
		return printListJSON(reg)
	}
	printListTable(reg)
	return nil
}

// listProject is one registry record shaped for --json output.
type listProject struct {
	Name         string         `json:"name"`
	Path         string         `json:"path"`
	Domain       string         `json:"domain,omitempty"`
	ProxyService string         `json:"proxyService,omitempty"`
	Secure       bool           `json:"secure"`
	URL          string         `json:"url,omitempty"`
	Ports        map[string]int `json:"ports"`
}

func listProjects(reg *registry.Registry) []listProject {
	projects := make([]listProject, 0, reg.Len())
	for _, rec := range reg.Records() {
		p := listProject{
			Name:         rec.Name,
			Path:         rec.Path,
			Domain:       rec.Domain,
			ProxyService: rec.ProxyService,
			Secure:       rec.ProxySecure,
			Ports:        rec.Ports,
		}
		if rec.Domain != "" {
			scheme := "http"
			if rec.ProxySecure {
				scheme = "https"
			}
			p.URL = scheme + "://" + rec.Domain
		}
		projects = append(projects, p)
	}
	return projects
}

func printListJSON(reg *registry.Registry) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(listProjects(reg))
}

func printListTable(reg *registry.Registry) {
	records := reg.Records()
	if len(records) == 0 {
		fmt.Println("  No projects registered. Run berth init inside a project.")
		return
	}

	rows := make([][4]string, 0, len(records))
	widths := [3]int{len("PROJECT"), len("DOMAIN"), len("PORTS")}
	for _, rec := range records {
		domain := rec.Domain
		if domain == "" {
			domain = "-"
		}
		pairs := make([]string, 0, len(rec.Ports))
		for _, name := range rec.PortNames() {
			pairs = append(pairs, fmt.Sprintf("%s=%d", name, rec.Ports[name]))
		}
		row := [4]string{rec.Name, domain, strings.Join(pairs, " "), rec.Path}
		for i, w := range widths {
			if len(row[i]) > w {
				widths[i] = len(row[i])
			}
		}
		rows = append(rows, row)
	}

	fmt.Printf("  %-*s  %-*s  %-*s  %s\n", widths[0], "PROJECT", widths[1], "DOMAIN", widths[2], "PORTS", "PATH")
	for _, row := range rows {
		fmt.Printf("  %-*s  %-*s  %-*s  %s\n", widths[0], row[0], widths[1], row[1], widths[2], row[2], row[3])
	}
}
