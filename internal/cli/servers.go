package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/model"
)

// Output formats of the servers command.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// probeLimit bounds concurrent fetches of "servers --check".
const probeLimit = 4

// serverEntry is one row of "ncmon servers". Tokens are never printed.
type serverEntry struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	URL         string `json:"url" yaml:"url"`
	File        string `json:"file" yaml:"file"`
	Default     bool   `json:"default" yaml:"default"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Latency     string `json:"latency,omitempty" yaml:"latency,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newServersCommand(rf *rootFlags) *cobra.Command {
	var (
		output string
		check  bool
	)

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List configured servers",
		Long: `List the servers found in the config directory, in the order ncmon uses
them. The first one is monitored by default.

With --check every server is fetched once and its status is reported.

Examples:
  ncmon servers
  ncmon servers --check
  ncmon servers -o yaml --dir /etc/ncmon`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, rf.settingsFile)
			if err != nil {
				return err
			}
			// Logs go to stderr so they never mix with the listing.
			closer, err := initLogging(s, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			reg, err := config.Discover(cmd.Context(), s.Dir)
			if err != nil {
				return err
			}
			if reg.Len() == 0 {
				return noConfigError(s.Dir)
			}

			entries := listServers(reg)
			if check {
				c := client.NewDefaultClient(client.ClientConfig{
					InsecureSkipVerify: s.Insecure,
					RequestTimeout:     s.Timeout,
					UserAgent:          s.UserAgent,
				})
				results, err := engine.Probe(cmd.Context(), c, reg.Servers(), probeLimit)
				if err != nil {
					return err
				}
				applyProbe(entries, results)
			}
			return writeServers(cmd.OutOrStdout(), output, entries)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	f.BoolVar(&check, "check", false, "fetch every server once and report its status")
	f.String("dir", ".", "directory holding ncmonitor*.txt files")
	f.Bool("insecure", false, "skip TLS certificate verification")
	f.Duration("timeout", client.DefaultRequestTimeout, "HTTP request timeout")
	f.String("log-level", "warn", "log level: debug, info, warn, error")
	return cmd
}

func listServers(reg *config.Registry) []serverEntry {
	def, _ := reg.Default()
	servers := reg.Servers()
	entries := make([]serverEntry, 0, len(servers))
	for _, s := range servers {
		entries = append(entries, serverEntry{
			Name:        s.Name(),
			DisplayName: s.DisplayName,
			URL:         s.BaseURL,
			File:        s.SourcePath,
			Default:     s.SourcePath == def.SourcePath,
		})
	}
	return entries
}

func applyProbe(entries []serverEntry, results []engine.ProbeResult) {
	for i, r := range results {
		if i >= len(entries) {
			break
		}
		entries[i].Latency = r.Took.Round(time.Millisecond).String()
		if r.Err != nil {
			entries[i].Status = "error"
			entries[i].Error = r.Err.Error()
			if code := errors.CodeOf(r.Err); code != "" {
				entries[i].Status = code
			}
			continue
		}
		entries[i].Status = "ok"
		if r.Snapshot != nil {
			entries[i].Version = r.Snapshot.Get(model.KeyVersion)
		}
	}
}

func writeServers(w io.Writer, format string, entries []serverEntry) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case outputTable, "":
		_, err := fmt.Fprintln(w, renderServerTable(entries))
		return err
	default:
		return errors.New(errors.ErrConfig,
			"Unknown output format "+format,
			"Use -o table, -o json or -o yaml")
	}
}

func renderServerTable(entries []serverEntry) string {
	checked := false
	for _, e := range entries {
		if e.Status != "" {
			checked = true
			break
		}
	}

	headers := []string{"", "NAME", "URL", "FILE"}
	if checked {
		headers = append(headers, "STATUS", "VERSION", "LATENCY")
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		marker := ""
		if e.Default {
			marker = "*"
		}
		row := []string{marker, e.Name, e.URL, e.File}
		if checked {
			row = append(row, e.Status, e.Version, e.Latency)
		}
		rows = append(rows, row)
	}

	statusCol := len(headers) - 3
	t := ltable.New().
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == ltable.HeaderRow {
				return base.Bold(true).Foreground(lipgloss.Color("#6b7280"))
			}
			if checked && col == statusCol && row >= 0 && row < len(entries) {
				if entries[row].Status == "ok" {
					return base.Foreground(lipgloss.Color("#10b981"))
				}
				return base.Foreground(lipgloss.Color("#ef4444"))
			}
			return base
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderColumn(false)

	return t.Render()
}
