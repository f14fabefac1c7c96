// Package app wires the screener components from a configuration and runs
// the indicator, scan and fetch stages.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/screener/batch"
	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/internal/metrics"
	"github.com/rustyeddy/screener/internal/scheduler"
	"github.com/rustyeddy/screener/journal"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/pkg/id"
	"github.com/rustyeddy/screener/scanner"
	"github.com/rustyeddy/screener/tiingo"
)

// App holds the components built from a configuration.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Metrics
	Runner  *batch.Runner
	Engine  *scanner.Engine
	Tiingo  *tiingo.Client

	// Journal is nil when journaling is off.
	Journal journal.Journal
	// Fundamentals is nil without a Tiingo key.
	Fundamentals tiingo.FundamentalsSource

	Now func() time.Time
}

// New builds an App. A nil logger discards output.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	m := metrics.New()

	client, err := tiingo.New(cfg.Tiingo, log, m)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: m,
		Runner:  batch.New(batch.Options{Logger: log, Metrics: m, Workers: cfg.Workers}),
		Engine:  scanner.New(scanner.Options{Logger: log, Metrics: m, Workers: cfg.Workers}),
		Tiingo:  client,
		Now:     time.Now,
	}
	if client.Token != "" {
		a.Fundamentals = client
	}

	if cfg.Journal.Type == "sqlite" {
		if dir := filepath.Dir(cfg.Journal.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create journal dir: %w", err)
			}
		}
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.Journal = j
	}
	return a, nil
}

// Close releases the journal.
func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Close()
}

// RunIndicators applies indicator configuration id to the ticker files.
// No timeframes means every timeframe the configuration lists.
func (a *App) RunIndicators(ctx context.Context, configID string, timeframes ...market.Timeframe) (*batch.Result, error) {
	cfg, err := config.LoadIndicatorConfig(a.Config.Dirs.IndicatorConfigs, configID)
	if err != nil {
		return nil, err
	}
	plan, err := a.Runner.Prepare(cfg, timeframes...)
	if err != nil {
		return nil, err
	}
	return a.Runner.Run(ctx, plan, a.Config.Dirs.Tickers, a.Config.Dirs.Indicators)
}

// ScanOptions tunes a scan run.
type ScanOptions struct {
	// Fundamentals appends the Tiingo fundamentals columns.
	Fundamentals bool
}

// ScanReport is the outcome of one scan.
type ScanReport struct {
	Run   journal.RunRecord
	Table *scanner.Table
}

// RunScan runs the named scan over the indicator files, writes the result
// CSV and journals the run.
func (a *App) RunScan(ctx context.Context, name string, opts ScanOptions) (*ScanReport, error) {
	scans, err := config.LoadScans(a.Config.Dirs.ScanConfigs)
	if err != nil {
		return nil, err
	}
	spec, err := scans.Get(name)
	if err != nil {
		return nil, err
	}
	return a.runScan(ctx, name, spec, opts)
}

// RunScanList runs every scan of a list in order. A failing scan is logged
// and the rest still run; the failures are joined in the returned error.
func (a *App) RunScanList(ctx context.Context, list string, opts ScanOptions) ([]*ScanReport, error) {
	scans, err := config.LoadScans(a.Config.Dirs.ScanConfigs)
	if err != nil {
		return nil, err
	}
	lists, err := config.LoadScanLists(a.Config.Dirs.ScanConfigs)
	if err != nil {
		return nil, err
	}
	names, err := lists.Get(list)
	if err != nil {
		return nil, err
	}
	if err := lists.Check(scans); err != nil {
		return nil, err
	}

	var reports []*ScanReport
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		spec, _ := scans.Get(name)
		rep, err := a.runScan(ctx, name, spec, opts)
		if err != nil {
			a.Log.Error("scan failed", logger.String("scan", name), logger.Err(err))
			errs = append(errs, fmt.Errorf("scan %s: %w", name, err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

func (a *App) runScan(ctx context.Context, name string, spec *scanner.Spec, opts ScanOptions) (*ScanReport, error) {
	if opts.Fundamentals && a.Fundamentals == nil {
		return nil, fmt.Errorf("fundamentals need a tiingo api key")
	}
	started := a.Now()

	plan, err := a.Engine.Prepare(name, spec)
	if err != nil {
		return nil, err
	}
	tbl, err := a.Engine.RunDir(ctx, plan, a.Config.Dirs.Indicators)
	if err != nil {
		return nil, err
	}
	if opts.Fundamentals {
		if err := tiingo.AttachFundamentals(ctx, a.Fundamentals, tbl, a.Log); err != nil {
			return nil, err
		}
	}

	path, err := journal.WriteResults(a.Config.Dirs.Scans, tbl, started, name)
	if err != nil {
		return nil, err
	}
	run := journal.RunRecord{
		RunID:      id.At(started),
		Scan:       name,
		Mode:       string(spec.Mode),
		Logic:      string(spec.Logic),
		StartedAt:  started,
		FinishedAt: a.Now(),
		Matches:    tbl.Len(),
		OutputPath: path,
	}
	if a.Journal != nil {
		if err := a.Journal.RecordRun(ctx, run, journal.Matches(run.RunID, tbl)); err != nil {
			return nil, fmt.Errorf("journal run: %w", err)
		}
	}

	a.Log.Info("scan written",
		logger.String("scan", name),
		logger.String("run_id", run.RunID),
		logger.Int("matches", run.Matches),
		logger.String("path", path))
	return &ScanReport{Run: run, Table: tbl}, nil
}

// Fetch downloads price files for tickers into the tickers directory.
func (a *App) Fetch(ctx context.Context, tickers []string, timeframes []market.Timeframe) (*tiingo.DownloadResult, error) {
	if a.Tiingo.Token == "" {
		return nil, fmt.Errorf("tiingo api key is not set (config tiingo.api_key or TIINGO_API_KEY)")
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers")
	}
	if len(timeframes) == 0 {
		timeframes = []market.Timeframe{market.Daily}
	}
	return a.Tiingo.Download(ctx, a.Config.Dirs.Tickers, tickers, timeframes, a.Now(), a.Config.Workers)
}

// Scheduled runs the configured indicator configuration and then the
// configured scan list.
func (a *App) Scheduled(ctx context.Context) error {
	sc := a.Config.Schedule
	tfs := make([]market.Timeframe, 0, len(sc.Timeframes))
	for _, s := range sc.Timeframes {
		tf, err := market.ParseTimeframe(s)
		if err != nil {
			return err
		}
		tfs = append(tfs, tf)
	}

	if sc.IndicatorConfig != "" {
		res, err := a.RunIndicators(ctx, sc.IndicatorConfig, tfs...)
		if err != nil {
			return fmt.Errorf("indicators: %w", err)
		}
		if len(res.Skipped) > 0 {
			a.Log.Warn("indicator files skipped", logger.Int("count", len(res.Skipped)))
		}
	}
	if sc.ScanList != "" {
		if _, err := a.RunScanList(ctx, sc.ScanList, ScanOptions{Fundamentals: sc.Fundamentals}); err != nil {
			return err
		}
	}
	return nil
}

// Watch runs Scheduled on the configured cron spec until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	if a.Config.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is not set")
	}
	s := scheduler.New(ctx, a.Log)
	if err := s.Register("screen", a.Config.Schedule.Cron, a.Scheduled); err != nil {
		return err
	}
	s.Start()
	a.Log.Info("watching", logger.String("next", s.Next().Format(time.RFC3339)))
	<-ctx.Done()
	s.Stop()
	return nil
}
