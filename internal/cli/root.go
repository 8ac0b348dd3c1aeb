// Package cli wires the ncmon commands: the monitor itself (root command),
// "servers" and "version".
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/sink"
)

// rootFlags holds flags that are not part of Settings.
type rootFlags struct {
	settingsFile string
}

// NewRootCommand builds the command tree. It is rebuilt per call so tests
// get isolated flag state.
func NewRootCommand() *cobra.Command {
	var rf rootFlags

	cmd := &cobra.Command{
		Use:   "ncmon",
		Short: "Monitor Nextcloud servers through the serverinfo API",
		Long: `Poll a Nextcloud server's serverinfo endpoint on a schedule and show the
normalized metrics in a terminal dashboard.

Servers are configured with files named ncmonitor*.txt in the config
directory: line 1 is the server URL, line 2 the NC-Token. Blank lines and
lines starting with # are ignored.

Examples:
  ncmon
  ncmon --dir ~/.config/ncmon --server ncmonitor_prod
  ncmon --headless --format json --interval 30s
  ncmon --listen :8080 --feed-token s3cret`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, rf.settingsFile)
			if err != nil {
				return err
			}
			return runMonitor(cmd.Context(), s, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addSettingsFlags(cmd)
	cmd.PersistentFlags().StringVar(&rf.settingsFile, "settings", "", "settings file (default: ncmon.yaml in --dir)")

	cmd.AddCommand(newServersCommand(&rf))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// addSettingsFlags registers the flags that map onto Settings. Defaults
// mirror setDefaults so --help shows them.
func addSettingsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("dir", ".", "directory holding ncmonitor*.txt files")
	f.Duration("interval", engine.DefaultInterval, "refresh interval (10s to 1h)")
	f.String("server", "", "server to monitor first: file name or display name")
	f.Bool("select", false, "pick the server interactively at startup")
	f.Bool("headless", false, "print updates to stdout instead of the dashboard")
	f.String("format", sink.FormatText, "headless output format: text or json")
	f.String("listen", "", "serve the live feed on this address, e.g. :8080")
	f.String("feed-token", "", "bearer token required by the live feed")
	f.Bool("insecure", false, "skip TLS certificate verification")
	f.Duration("timeout", client.DefaultRequestTimeout, "HTTP request timeout")
	f.String("user-agent", "ncmon/"+version, "User-Agent header sent to servers")
	f.String("theme", "dark", "dashboard theme: dark or light")
	f.String("log-file", "", "write logs to this file")
	f.String("log-level", "info", "log level: debug, info, warn, error")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, formatError(err))
		return 1
	}
	return 0
}

// formatError renders err for the terminal. Structured errors show their
// code so scripts can grep for it.
func formatError(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return fmt.Sprintf("Error [%s]: %s", code, err.Error())
	}
	return "Error: " + err.Error()
}
