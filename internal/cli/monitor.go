package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/feed"
	"github.com/jtsunne/ncmon/internal/logger"
	"github.com/jtsunne/ncmon/internal/sink"
	"github.com/jtsunne/ncmon/internal/tui"
)

// runMonitor discovers the configured servers and polls the chosen one
// until ctx is done, the dashboard quits or the feed server fails.
func runMonitor(ctx context.Context, s Settings, stdout, stderr io.Writer) error {
	headless := s.Headless || !isTerminal(stdout)

	closer, err := initLogging(s, headless, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logger.WithComponent("cli")

	theme, err := tui.ThemeByName(s.Theme)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Use --theme dark or --theme light")
	}

	reg, err := config.Discover(ctx, s.Dir)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		return noConfigError(s.Dir)
	}

	server, err := chooseServer(reg, s, promptServer)
	if err != nil {
		return err
	}

	c := client.NewDefaultClient(client.ClientConfig{
		InsecureSkipVerify: s.Insecure,
		RequestTimeout:     s.Timeout,
		UserAgent:          s.UserAgent,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sched *engine.Scheduler
	interval := func() time.Duration { return sched.Session().Interval }

	var (
		sinks   []engine.Sink
		text    *sink.Text
		tuiSink *tui.Sink
		feedSrv *feed.Server
	)
	if headless {
		text = sink.NewText(stdout, s.Format, interval)
		sinks = append(sinks, text)
	} else {
		tuiSink = tui.NewSink()
		sinks = append(sinks, tuiSink)
	}
	if s.Listen != "" {
		feedSrv = feed.NewServer(s.FeedToken, nil)
		sinks = append(sinks, feedSrv)
	}

	sched, err = engine.NewScheduler(engine.SchedulerConfig{
		Client:   c,
		Sink:     sink.NewMulti(sinks...),
		Server:   server,
		Interval: s.Interval,
	})
	if err != nil {
		return err
	}
	if feedSrv != nil {
		feedSrv.SetRefresher(sched)
	}

	g, gctx := errgroup.WithContext(ctx)

	if feedSrv != nil {
		g.Go(func() error {
			if err := feedSrv.ListenAndServe(gctx, s.Listen); err != nil {
				return fmt.Errorf("live feed: %w", err)
			}
			return nil
		})
	}
	if text != nil {
		g.Go(func() error {
			if err := text.Run(gctx); !stderrors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	log.Info().
		Str("server", server.DisplayName).
		Dur("interval", s.Interval).
		Int("servers", reg.Len()).
		Bool("headless", headless).
		Msg("Starting monitor")

	if err := sched.Start(gctx); err != nil {
		return err
	}
	defer sched.Stop()

	if tuiSink != nil {
		app := tui.NewApp(sched, tuiSink, reg.Servers(), theme)
		p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithOutput(stdout))
		g.Go(func() error {
			defer cancel()
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		})
		go func() {
			<-gctx.Done()
			p.Quit()
		}()
	}

	return g.Wait()
}

// initLogging keeps the dashboard's terminal clean: logs go to --log-file
// when given, to stderr in headless mode, and nowhere otherwise.
func initLogging(s Settings, headless bool, stderr io.Writer) (io.Closer, error) {
	cfg := logger.Config{Level: s.LogLevel, Output: s.LogFile}
	if s.LogFile == "" && headless {
		cfg.Writer = stderr
	}

	closer, err := logger.Init(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot set up logging: "+err.Error(),
			"Check --log-level and that the --log-file directory is writable")
	}
	return closer, nil
}

func noConfigError(dir string) error {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return errors.New(errors.ErrConfig,
		"No valid configuration files (ncmonitor*.txt) found in "+dir,
		"Create ncmonitor.txt (or ncmonitor_<name>.txt) with the server URL on line 1 and the NC-Token on line 2")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
