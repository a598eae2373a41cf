// Command apexbt is the backtest CLI entry point: it wires config ->
// logger -> BacktestService -> a strategy -> a run report, in the
// teacher's cmd/fairsim idiom (manual os.Args subcommand dispatch, no
// flag-parsing library).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/apexctx"
	"github.com/automatedalgo/apex/internal/backtest"
	"github.com/automatedalgo/apex/internal/config"
	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/engine"
	"github.com/automatedalgo/apex/internal/hostinfo"
	"github.com/automatedalgo/apex/internal/ids"
	"github.com/automatedalgo/apex/internal/logging"
	"github.com/automatedalgo/apex/internal/replay"
	"github.com/automatedalgo/apex/internal/router"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: apexbt run <config.yaml>")
			os.Exit(1)
		}
		if err := runBacktest(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "apexbt: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: apexbt run <config.yaml>")
}

func runBacktest(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	host := hostinfo.Collect()
	runID := ids.NewRunID()
	logger.Info("apexbt: starting run", "run_id", runID, "hostname", host.Hostname, "pid", host.PID)

	loop := engine.NewSimEventLoop()
	ctx := apexctx.New(logger, loop)

	outDir := filepath.Join(cfg.Audit.OutputDir, runID)
	journalPath := filepath.Join(outDir, "journal.jsonl")
	snapshotPath := filepath.Join(outDir, cfg.Audit.SnapshotFile)

	uptoTime, err := replayUptoTime(cfg.Replay.Upto)
	if err != nil {
		return err
	}

	svc, err := backtest.New(ctx, loop, cfg.Strategy.Name, uptoTime, journalPath, host)
	if err != nil {
		return err
	}

	instruments := make([]domain.Instrument, 0, len(cfg.Replay.Instruments))
	for _, sym := range cfg.Replay.Instruments {
		instr, err := domain.NewInstrument(domain.ExchangeBinance, sym, decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), domain.Asset(sym), domain.Asset("USDT"))
		if err != nil {
			return fmt.Errorf("instrument %s: %w", sym, err)
		}
		svc.AddInstrument(instr)
		instruments = append(instruments, instr)

		for _, streamName := range cfg.Replay.Streams {
			stream, err := domain.ParseMdStream(streamName)
			if err != nil {
				return err
			}
			r, err := replay.NewTickReplayer(cfg.TickData.RootDir, instr, stream, cfg.Replay.From, cfg.Replay.Upto, logger)
			if err != nil {
				return fmt.Errorf("replayer %s/%s: %w", sym, streamName, err)
			}
			svc.AddReplayer(r)
		}
	}

	clientIDs := ids.NewClientIDGenerator(cfg.Strategy.Name)
	runDemoStrategy(svc, instruments, clientIDs, svc.Router())

	if err := svc.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := svc.WriteSnapshot(snapshotPath); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logger.Info("apexbt: run complete", "run_id", runID, "journal", journalPath, "snapshot", snapshotPath)
	return nil
}

func replayUptoTime(uptoDate string) (domain.Time, error) {
	// replay_upto is inclusive through the last microsecond of the
	// given date.
	t, err := domain.NewTimeFromStdDate(uptoDate)
	if err != nil {
		return 0, err
	}
	return t, nil
}

// runDemoStrategy wires a trivial one-shot strategy: on the first
// top-of-book for the first configured instrument, it sends a single
// marketable buy and never sends another order. Real strategy logic
// lives outside this module; this only exercises the wiring end to
// end for a single-binary `apexbt run`.
func runDemoStrategy(svc *backtest.Service, instruments []domain.Instrument, clientIDs *ids.ClientIDGenerator, r router.OrderRouter) {
	if len(instruments) == 0 {
		return
	}
	instr := instruments[0]
	md := svc.MarketData().FindMarketData(instr)
	if md == nil {
		return
	}

	sent := false
	md.OnTickBook(func(tob domain.TopOfBookEvent, _ domain.Time) {
		if sent || !tob.AskQty.IsPositive() {
			return
		}
		sent = true
		r.SendOrder(&domain.Order{
			ClientID:   clientIDs.Next(),
			Instrument: instr,
			Side:       domain.Buy,
			OrderType:  domain.Limit,
			Price:      tob.AskPx,
			Size:       tob.AskQty,
			TIF:        domain.GTC,
			State:      domain.PendingNew,
		})
	})
}
