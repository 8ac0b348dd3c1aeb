// Command ncmon polls a Nextcloud serverinfo endpoint and shows the
// metrics in a terminal dashboard, as plain text, or over a live feed.
package main

import (
	"github.com/jtsunne/ncmon/internal/cli"
)

// Set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2026-01-01" ./cmd/ncmon
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.Execute()
}
