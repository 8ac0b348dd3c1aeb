// Package config discovers the server configuration files ncmon polls.
//
// A configuration file is a UTF-8 text file named ncmonitor*.txt. Blank lines
// and lines starting with '#' are ignored; the first remaining line is the
// server base URL and the second is its serverinfo token:
//
//	# production
//	https://cloud.example.com/
//	s3cr3t-token
package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/logger"
)

// FilePattern matches configuration file names.
var FilePattern = regexp.MustCompile(`^ncmonitor\w*\.txt$`)

// maxParallelReads bounds concurrent file reads during discovery.
const maxParallelReads = 8

// ServerConfig is one target server. Values are immutable once loaded and
// identified by SourcePath.
type ServerConfig struct {
	DisplayName string `json:"display_name" yaml:"display_name"`
	BaseURL     string `json:"base_url" yaml:"base_url"`
	Token       string `json:"-" yaml:"-"`
	SourcePath  string `json:"source_path" yaml:"source_path"`
}

// Name is the config file name without its .txt extension.
func (c ServerConfig) Name() string {
	return strings.TrimSuffix(filepath.Base(c.SourcePath), ".txt")
}

// Registry is the ordered, read-only list of discovered servers.
type Registry struct {
	servers []ServerConfig
}

// NewRegistry wraps servers in a Registry. The slice is copied.
func NewRegistry(servers []ServerConfig) *Registry {
	return &Registry{servers: append([]ServerConfig(nil), servers...)}
}

// Discover scans dir (non-recursively) for configuration files and parses
// each one. Invalid files are logged and skipped. The result keeps
// directory enumeration order; an empty Registry is not an error.
func Discover(ctx context.Context, dir string) (*Registry, error) {
	log := logger.WithComponent("config")

	f, err := os.Open(dir)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("cannot open config directory %q", dir), "Check the --dir flag")
	}
	entries, err := f.ReadDir(-1)
	_ = f.Close()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("cannot read config directory %q", dir), "Check the --dir flag")
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !FilePattern.MatchString(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	parsed := make([]*ServerConfig, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg, err := ParseFile(path)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Msg("skipping config file")
				return nil
			}
			parsed[i] = &cfg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Discover: %w", err)
	}

	servers := make([]ServerConfig, 0, len(parsed))
	for _, cfg := range parsed {
		if cfg != nil {
			servers = append(servers, *cfg)
		}
	}
	log.Debug().Int("files", len(paths)).Int("servers", len(servers)).Str("dir", dir).Msg("discovery complete")

	return &Registry{servers: servers}, nil
}

// ParseFile reads one configuration file.
func ParseFile(path string) (ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return ServerConfig{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("cannot read %s", filepath.Base(path)), "")
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < 2 {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return ServerConfig{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("cannot read %s", filepath.Base(path)), "")
	}

	if len(lines) < 2 {
		return ServerConfig{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must contain a URL line and a token line", filepath.Base(path)), "")
	}
	baseURL, token := lines[0], lines[1]
	if !strings.HasPrefix(baseURL, "http") {
		return ServerConfig{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("%s: URL %q must start with http", filepath.Base(path), baseURL), "")
	}

	cfg := ServerConfig{
		BaseURL:    baseURL,
		Token:      token,
		SourcePath: path,
	}
	cfg.DisplayName = fmt.Sprintf("[%s] %s", cfg.Name(), hostPath(baseURL))
	return cfg, nil
}

// hostPath strips everything up to the last "//" and any trailing slash.
func hostPath(url string) string {
	if i := strings.LastIndex(url, "//"); i >= 0 {
		url = url[i+2:]
	}
	return strings.TrimRight(url, "/")
}

// Servers returns the discovered configs in discovery order.
func (r *Registry) Servers() []ServerConfig {
	return append([]ServerConfig(nil), r.servers...)
}

func (r *Registry) Len() int { return len(r.servers) }

// Default is the first discovered config. ok is false for an empty Registry.
func (r *Registry) Default() (cfg ServerConfig, ok bool) {
	if len(r.servers) == 0 {
		return ServerConfig{}, false
	}
	return r.servers[0], true
}

// Lookup resolves name against, in order, each server's source path, file
// name (with or without .txt) and display name.
func (r *Registry) Lookup(name string) (ServerConfig, bool) {
	for _, s := range r.servers {
		if s.SourcePath == name {
			return s, true
		}
	}
	for _, s := range r.servers {
		if s.Name() == name || filepath.Base(s.SourcePath) == name {
			return s, true
		}
	}
	for _, s := range r.servers {
		if s.DisplayName == name {
			return s, true
		}
	}
	return ServerConfig{}, false
}
