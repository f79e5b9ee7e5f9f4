// cmd/reactorctl/main.go
// Author: momentics <momentics@gmail.com>
//
// Demo CLI driving a reactor.Pool: registers a self-pipe, dispatches
// workers, and exposes a readline REPL for inspecting/reconfiguring the
// pool while it runs.
//
//go:build unix

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/momentics/evreactor/control"
	"github.com/momentics/evreactor/reactor"
)

func main() {
	wrapper := newCliWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	flagThreads = &cli.IntFlag{
		Name:    "threads",
		Aliases: []string{"t"},
		Value:   control.DefaultEventThreadCount,
		Usage:   "initial dispatch worker count.",
		EnvVars: []string{"EVREACTOR_EVENT_THREAD_COUNT"},
	}
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "optional YAML/TOML/JSON config file overriding sizing defaults.",
		EnvVars: []string{"EVREACTOR_CONFIG"},
	}
)

type cliWrapper struct {
	app *cli.App
}

func newCliWrapper() *cliWrapper {
	w := &cliWrapper{
		app: &cli.App{
			Name:    "reactorctl",
			Usage:   "demo driver for the epoll readiness-event reactor",
			Version: "0.1.0",
		},
	}
	w.app.Flags = []cli.Flag{flagThreads, flagConfig}
	w.app.Authors = []*cli.Author{{Name: "momentics", Email: "momentics@gmail.com"}}
	w.app.Action = w.run
	return w
}

func (w *cliWrapper) Run(args []string) error {
	return w.app.Run(args)
}

func (w *cliWrapper) run(ctx *cli.Context) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfgStore := control.NewConfigStore()
	if path := ctx.String("config"); path != "" {
		if err := cfgStore.Load(path); err != nil {
			return fmt.Errorf("reactorctl: loading config: %w", err)
		}
	}
	tunables := cfgStore.Tunables()
	if ctx.IsSet("threads") {
		tunables.EventThreadCount = ctx.Int("threads")
	}

	metrics := control.NewMetricsRegistry()
	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	control.RegisterReactorProbes(probes, metrics, cfgStore)

	pool, err := reactor.New(reactor.Options{
		EventThreadCount: tunables.EventThreadCount,
		MaxThreads:       tunables.MaxThreads,
		TableWidth:       tunables.TableWidth,
		SlotWidth:        tunables.SlotWidth,
		Logger:           logger,
		Metrics:          metrics,
	})
	if err != nil {
		return fmt.Errorf("reactorctl: creating pool: %w", err)
	}

	r, wfd, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("reactorctl: creating self-pipe: %w", err)
	}
	defer r.Close()
	defer wfd.Close()

	_, err = pool.Register(int(r.Fd()), func(fd int, handle int32, gen uint32, data any, pollIn, pollOut, pollErr, pollerDied bool) {
		if pollerDied {
			logger.Info("self-pipe notified of poller death", zap.Int32("handle", handle))
			return
		}
		buf := make([]byte, 256)
		n, _ := r.Read(buf)
		logger.Debug("self-pipe readable", zap.Int("bytes", n))
		_ = pool.Handled(handle, fd, gen)
	}, nil, 1, -1, true)
	if err != nil {
		return fmt.Errorf("reactorctl: registering self-pipe: %w", err)
	}

	go pool.Dispatch()

	// Reload is the one domain-level consumer of control's global hook
	// registry: a config reload (file re-Load or SetConfig) re-resolves
	// event_thread_count and drives it straight into ReconfigureThreads,
	// so the pool's live worker count tracks the config store instead of
	// being fixed at startup.
	control.RegisterReloadHook(func() {
		n := cfgStore.Tunables().EventThreadCount
		pool.ReconfigureThreads(n)
		logger.Info("hot-reload: reconfigured threads", zap.Int("event_thread_count", n))
	})

	return w.repl(pool, metrics, probes, cfgStore)
}

func (w *cliWrapper) repl(pool *reactor.Pool, metrics *control.MetricsRegistry, probes *control.DebugProbes, cfgStore *control.ConfigStore) error {
	historyDir, err := homedir.Expand("~/.reactorctl")
	if err != nil {
		historyDir = os.TempDir()
	}
	_ = os.MkdirAll(historyDir, 0o755)

	input, err := readline.NewEx(&readline.Config{
		Prompt: "reactorctl> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("stats"),
			readline.PcItem("reconfigure"),
			readline.PcItem("reload"),
			readline.PcItem("probes"),
			readline.PcItem("quit"),
		),
		HistoryFile: filepath.Join(historyDir, fmt.Sprintf("history_%s", time.Now().Format("20060102"))),
	})
	if err != nil {
		return err
	}
	defer input.Close()
	input.CaptureExitSignal()

	for {
		line, err := input.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				break
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "stats":
			snap := metrics.GetSnapshot()
			fmt.Printf("active_threads=%v registered_slots=%v dispatched=%v stale=%v poller_deaths=%v poller_gen=%d\n",
				snap["active_threads"], snap["registered_slots"], snap["dispatched_events"],
				snap["stale_dispatches"], snap["poller_deaths"], pool.PollerGen())
		case "reconfigure":
			if len(fields) != 2 {
				fmt.Println("usage: reconfigure <n>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("invalid thread count:", fields[1])
				continue
			}
			pool.ReconfigureThreads(n)
		case "reload":
			if len(fields) != 2 {
				fmt.Println("usage: reload <event_thread_count>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("invalid thread count:", fields[1])
				continue
			}
			cfgStore.SetConfig(map[string]any{"event_thread_count": n})
		case "probes":
			for name, val := range probes.DumpState() {
				fmt.Printf("%s: %v\n", name, val)
			}
		case "quit", "exit":
			pool.Destroy()
			pool.ReconfigureThreads(0)
			return pool.PoolDestroy()
		default:
			fmt.Println("commands: stats, reconfigure <n>, reload <n>, probes, quit")
		}
	}

	pool.Destroy()
	pool.ReconfigureThreads(0)
	return pool.PoolDestroy()
}
