package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/chartsync/config"
	"github.com/alejandrodnm/chartsync/internal/adapters/echart"
	"github.com/alejandrodnm/chartsync/internal/adapters/notify"
	"github.com/alejandrodnm/chartsync/internal/adapters/restapi"
	"github.com/alejandrodnm/chartsync/internal/adapters/storage"
	"github.com/alejandrodnm/chartsync/internal/application/dashboard"
	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	offline := flag.Bool("offline", false, "replay from the local archive instead of the backend")
	record := flag.Bool("record", false, "archive every backend response for later offline use")
	seedDir := flag.String("seed", "", "load saved backend responses from DIR into the archive and exit")
	symbol := flag.String("symbol", "", "instrument to open (overrides config)")
	script := flag.String("script", "", "read shell commands from FILE instead of stdin")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *symbol != "" {
		cfg.Chart.DefaultSymbol = *symbol
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stderr))

	slog.Info("chartsync starting",
		"config", *configPath,
		"api", cfg.API.BaseURL,
		"symbol", cfg.Chart.DefaultSymbol,
		"offline", *offline,
		"record", *record,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var archive *storage.Archive
	if *offline || *record || *seedDir != "" {
		archive, err = storage.NewArchive(cfg.Archive.DSN)
		if err != nil {
			slog.Error("failed to open archive", "err", err, "dsn", cfg.Archive.DSN)
			os.Exit(1)
		}
		defer archive.Close()
	}

	if *seedDir != "" {
		w := seedWindow{Symbol: cfg.Chart.DefaultSymbol, Start: cfg.Backtest.Start, End: cfg.Backtest.End}
		if err := seedArchive(ctx, archive, *seedDir, w); err != nil {
			slog.Error("seed failed", "err", err, "dir", *seedDir)
			os.Exit(1)
		}
		slog.Info("seed complete", "dsn", cfg.Archive.DSN)
		return
	}

	var (
		backend ports.Backend
		status  ports.StatusProvider
	)
	switch {
	case *offline:
		backend, status = archive, archive
	default:
		client := restapi.NewClient(cfg.API.BaseURL, cfg.Timeout(), cfg.API.RatePerSec)
		backend, status = client, client
		if *record {
			backend = storage.NewRecorder(client, archive)
		}
	}

	in := io.Reader(os.Stdin)
	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			slog.Error("failed to open script", "err", err, "path", *script)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := run(ctx, cfg, backend, status, in); err != nil {
		slog.Error("dashboard exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("chartsync stopped cleanly")
}

// run arranca el loop, la sesión, los pollers y la shell, y espera a que la
// shell termine.
func run(ctx context.Context, cfg *config.Config, backend ports.Backend, status ports.StatusProvider, in io.Reader) error {
	iv, err := domain.ParseInterval(cfg.Chart.DefaultInterval)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	loop := replay.NewLoop()
	g.Go(func() error { return loop.Run(gctx) })

	trades := notify.NewTradeList()
	opener := &capturingOpener{Opener: echart.Opener{Dir: cfg.Chart.Output}}
	session, err := dashboard.Open(gctx, loop, dashboard.Deps{
		Backend:   backend,
		Opener:    opener,
		Trades:    trades,
		Results:   notify.NewResultPanel(os.Stdout, cfg.Backtest.InitialBalance),
		Listeners: []ports.HighlightListener{notify.NewDetailLog(os.Stdout, trades)},
	}, dashboard.Options{
		Title:    "chartsync " + cfg.Chart.DefaultSymbol,
		Symbol:   cfg.Chart.DefaultSymbol,
		Interval: iv,
		Chart: replay.ChartOptions{
			Overlays:    overlayConfigs(cfg.Chart.Overlays),
			FocusBefore: cfg.FocusBefore(),
			FocusAfter:  cfg.FocusAfter(),
		},
		Settings: dashboard.Settings{
			StrategyID: cfg.Backtest.DefaultStrategy,
			Start:      cfg.Backtest.Start,
			End:        cfg.Backtest.End,
		},
	})
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	if err := session.LoadStrategies(gctx); err != nil {
		slog.Warn("strategies unavailable", "err", err)
	} else if err := session.SelectStrategy(gctx, cfg.Backtest.DefaultStrategy); err != nil {
		slog.Warn("default strategy not in catalogue", "strategy", cfg.Backtest.DefaultStrategy, "err", err)
	}

	poller := dashboard.NewPoller(status, notify.NewStatusPanel(os.Stdout), cfg.KillSwitchEvery(), cfg.SchedulerEvery())
	g.Go(func() error { return poller.Run(gctx) })

	g.Go(func() error {
		defer cancel()
		sh := &shell{session: session, chart: opener.surface, out: os.Stdout}
		err := sh.run(gctx, in)
		if cerr := session.Close(); cerr != nil {
			slog.Warn("chart close failed", "err", cerr)
		}
		return err
	})

	return g.Wait()
}

func overlayConfigs(in []config.OverlayConfig) []replay.OverlayConfig {
	out := make([]replay.OverlayConfig, 0, len(in))
	for _, o := range in {
		out = append(out, replay.OverlayConfig{Window: o.Window, Color: o.Color, Enabled: o.Enabled})
	}
	return out
}

// capturingOpener guarda la superficie abierta para que la shell pueda
// simular clicks sobre ella.
type capturingOpener struct {
	echart.Opener
	surface *echart.Surface
}

func (o *capturingOpener) Open(ctx context.Context, title string) (ports.ChartSurface, error) {
	s, err := o.Opener.Open(ctx, title)
	if err != nil {
		return nil, err
	}
	o.surface = s.(*echart.Surface)
	return s, nil
}

// newLogger construye el logger del proceso. Un nivel desconocido cae a info;
// cualquier formato distinto de "json" escribe texto.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
