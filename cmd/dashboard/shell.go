package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/chartsync/internal/application/dashboard"
	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
)

const shellHelp = `commands:
  symbol SYM              load another instrument (discards the run)
  interval daily|minute   switch candle interval
  reload                  fetch the current series again
  ma WINDOW on|off        toggle a moving average
  strategies [daily|intraday]
  strategy ID             select a strategy (loads its default params)
  params JSON             set strategy params
  window START END        backtest window (2006-01-02 or 2006-01-02T15:04)
  run                     run the backtest and wait for the result
  reset                   discard the current run
  click TIME              click the candle at TIME on the chart
  trade N                 select the N-th trade of the run
  hover TIME|off          hover a trade row
  status                  print the session state
  quit`

// clicker es la parte de la superficie que usa la shell para simular clicks.
type clicker interface {
	Click(t time.Time)
}

// shell interpreta comandos de texto sobre una sesión.
type shell struct {
	session *dashboard.Session
	chart   clicker
	out     io.Writer
}

// run lee comandos de in hasta EOF, "quit" o ctx cancelado.
func (sh *shell) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(sh.out, "> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := sh.exec(ctx, line)
			if err != nil {
				fmt.Fprintf(sh.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			fmt.Fprint(sh.out, "> ")
		}
	}
}

func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
		return false, nil
	case "symbol":
		if len(args) != 1 {
			return false, errors.New("usage: symbol SYM")
		}
		tk, err := sh.session.SelectSymbol(ctx, args[0])
		if err != nil {
			return false, err
		}
		return false, sh.waitFetch(ctx, tk)
	case "interval":
		if len(args) != 1 {
			return false, errors.New("usage: interval daily|minute")
		}
		iv, err := domain.ParseInterval(args[0])
		if err != nil {
			return false, err
		}
		tk, err := sh.session.SetInterval(ctx, iv)
		if err != nil {
			return false, err
		}
		return false, sh.waitFetch(ctx, tk)
	case "reload":
		tk, err := sh.session.Reload(ctx)
		if err != nil {
			return false, err
		}
		return false, sh.waitFetch(ctx, tk)
	case "ma":
		if len(args) != 2 {
			return false, errors.New("usage: ma WINDOW on|off")
		}
		window, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("bad window %q", args[0])
		}
		return false, sh.session.ToggleOverlay(ctx, window, args[1] == "on")
	case "strategies":
		return false, sh.strategies(ctx, args)
	case "strategy":
		if len(args) != 1 {
			return false, errors.New("usage: strategy ID")
		}
		return false, sh.session.SelectStrategy(ctx, args[0])
	case "params":
		params := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		return false, sh.session.UpdateSettings(ctx, func(st *dashboard.Settings) { st.Params = params })
	case "window":
		if len(args) != 2 {
			return false, errors.New("usage: window START END")
		}
		return false, sh.session.UpdateSettings(ctx, func(st *dashboard.Settings) {
			st.Start, st.End = args[0], args[1]
		})
	case "run":
		return false, sh.runBacktest(ctx)
	case "reset":
		return false, sh.session.ResetBacktest(ctx)
	case "click":
		t, err := argTime(args)
		if err != nil {
			return false, err
		}
		sh.chart.Click(t)
		return false, nil
	case "trade":
		return false, sh.selectTrade(ctx, args)
	case "hover":
		if len(args) == 1 && args[0] == "off" {
			sh.session.OnHoverTrade(nil)
			return false, nil
		}
		t, err := argTime(args)
		if err != nil {
			return false, err
		}
		sh.session.OnHoverTrade(&t)
		return false, nil
	case "status":
		return false, sh.status(ctx)
	}
	return false, fmt.Errorf("unknown command %q (try help)", cmd)
}

func (sh *shell) waitFetch(ctx context.Context, tk *replay.Ticket[replay.FetchResult]) error {
	res, err := tk.Wait(ctx)
	if err != nil {
		return err
	}
	switch {
	case res.Stale:
		fmt.Fprintf(sh.out, "%s: superseded\n", res.Key)
	case res.Err != nil:
		return res.Err
	default:
		fmt.Fprintf(sh.out, "%s: %d candles\n", res.Key, res.Candles)
	}
	return nil
}

func (sh *shell) strategies(ctx context.Context, args []string) error {
	if err := sh.session.LoadStrategies(ctx); err != nil {
		return err
	}
	mode := domain.ModeDaily
	if len(args) == 1 && args[0] == string(domain.ModeIntraday) {
		mode = domain.ModeIntraday
	}
	list, err := sh.session.Strategies(ctx, mode)
	if err != nil {
		return err
	}
	for _, s := range list {
		fmt.Fprintf(sh.out, "  %-4s %s  %s\n", s.ID, s.Name, s.DefaultParams)
	}
	return nil
}

func (sh *shell) runBacktest(ctx context.Context) error {
	tk, err := sh.session.RunBacktest(ctx)
	if err != nil {
		return err
	}
	out, err := tk.Wait(ctx)
	if err != nil {
		return err
	}
	switch {
	case out.Superseded:
		fmt.Fprintln(sh.out, "run superseded")
	case out.Err != nil:
		return out.Err
	}
	return nil
}

func (sh *shell) selectTrade(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: trade N")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad trade number %q", args[0])
	}
	snap, err := sh.session.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.Run == nil {
		return errors.New("no backtest run")
	}
	trades := snap.Run.Trades()
	if n < 1 || n > len(trades) {
		return fmt.Errorf("trade %d out of range 1..%d", n, len(trades))
	}
	sh.session.OnClickTrade(trades[n-1].Time)
	return nil
}

func (sh *shell) status(ctx context.Context) error {
	snap, err := sh.session.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "  series   %s/%s  %d candles (v%d)\n", snap.Symbol, snap.Interval, len(snap.Series.Candles), snap.Version)
	if !snap.Visible.Empty() {
		fmt.Fprintf(sh.out, "  visible  %s → %s\n", domain.FormatDateTime(snap.Visible.From), domain.FormatDateTime(snap.Visible.To))
	}
	for _, ov := range snap.Overlays {
		fmt.Fprintf(sh.out, "  MA%-3d    %d points\n", ov.Window, len(ov.Points))
	}
	fmt.Fprintf(sh.out, "  backtest %s  %d markers\n", snap.State, len(snap.Markers))
	if snap.Selected != nil {
		fmt.Fprintf(sh.out, "  selected %s\n", domain.FormatDateTime(*snap.Selected))
	}
	if snap.LastErr != nil {
		fmt.Fprintf(sh.out, "  last err %v\n", snap.LastErr)
	}
	st := snap.Settings
	fmt.Fprintf(sh.out, "  settings %s %s %s..%s\n", st.StrategyID, st.Params, st.Start, st.End)
	return nil
}

func argTime(args []string) (time.Time, error) {
	if len(args) != 1 {
		return time.Time{}, errors.New("expected one time argument")
	}
	return domain.ParseTime(args[0])
}
