package cli

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/errors"
)

// chooseServer picks the server monitored first: --server when given, the
// interactive prompt when --select is set on a terminal, otherwise the
// registry default.
func chooseServer(reg *config.Registry, s Settings, prompt func([]config.ServerConfig) (string, error)) (config.ServerConfig, error) {
	if s.Server != "" {
		server, ok := reg.Lookup(s.Server)
		if !ok {
			return config.ServerConfig{}, errors.New(errors.ErrConfig,
				"No server named "+s.Server,
				"Run 'ncmon servers' to list the configured servers")
		}
		return server, nil
	}

	if s.Select && reg.Len() > 1 && prompt != nil {
		path, err := prompt(reg.Servers())
		if err != nil {
			return config.ServerConfig{}, err
		}
		if server, ok := reg.Lookup(path); ok {
			return server, nil
		}
	}

	server, _ := reg.Default()
	return server, nil
}

// promptServer asks for a server with a huh select and returns its source
// path. It refuses to prompt without a terminal.
func promptServer(servers []config.ServerConfig) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New(errors.ErrConfig,
			"--select needs an interactive terminal",
			"Use --server NAME instead")
	}

	options := make([]huh.Option[string], 0, len(servers))
	for _, s := range servers {
		options = append(options, huh.NewOption(s.DisplayName, s.SourcePath))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a Nextcloud server").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Server selection cancelled",
			"Use --server NAME to skip the prompt")
	}
	return selected, nil
}
