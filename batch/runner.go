// Package batch computes indicator files for every ticker file in a
// directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/internal/metrics"
	"github.com/rustyeddy/screener/market"
)

// Options configures a Runner. Zero values pick the defaults.
type Options struct {
	Compositor *indicators.Compositor
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	Workers    int
}

// Runner applies indicator pipelines to ticker files.
type Runner struct {
	comp    *indicators.Compositor
	log     *logger.Logger
	metrics *metrics.Metrics
	workers int
}

// New returns a runner.
func New(opts Options) *Runner {
	r := &Runner{
		comp:    opts.Compositor,
		log:     opts.Logger,
		metrics: opts.Metrics,
		workers: opts.Workers,
	}
	if r.comp == nil {
		r.comp = indicators.NewCompositor(nil)
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	if r.workers <= 0 {
		r.workers = runtime.NumCPU()
	}
	return r
}

// Plan holds one bound pipeline per timeframe.
type Plan struct {
	ID        string
	order     []market.Timeframe
	pipelines map[market.Timeframe]*indicators.Pipeline
}

// Timeframes returns the planned timeframes, slowest first.
func (p *Plan) Timeframes() []market.Timeframe {
	return append([]market.Timeframe(nil), p.order...)
}

// Pipeline returns the pipeline of a timeframe.
func (p *Plan) Pipeline(tf market.Timeframe) (*indicators.Pipeline, bool) {
	pl, ok := p.pipelines[tf]
	return pl, ok
}

// Prepare binds the pipelines of cfg. With no timeframes every configured
// timeframe is planned; a requested timeframe the config does not list is
// an error.
func (r *Runner) Prepare(cfg *config.IndicatorConfig, timeframes ...market.Timeframe) (*Plan, error) {
	configured := cfg.Timeframes()
	want := configured
	if len(timeframes) > 0 {
		want = nil
		for _, tf := range configured {
			for _, req := range timeframes {
				if req == tf {
					want = append(want, tf)
					break
				}
			}
		}
		for _, req := range timeframes {
			if _, ok := cfg.Indicators[req]; !ok {
				avail := make([]string, len(configured))
				for i, tf := range configured {
					avail[i] = string(tf)
				}
				return nil, &config.Error{
					Kind:      "timeframe in indicator config " + cfg.ID,
					Name:      string(req),
					Available: avail,
				}
			}
		}
	}

	p := &Plan{ID: cfg.ID, pipelines: make(map[market.Timeframe]*indicators.Pipeline, len(want))}
	for _, tf := range want {
		pl, err := r.comp.Prepare(cfg.Indicators[tf], cfg.Params[tf])
		if err != nil {
			return nil, fmt.Errorf("indicator config %s %s: %w", cfg.ID, tf, err)
		}
		p.order = append(p.order, tf)
		p.pipelines[tf] = pl
	}
	return p, nil
}

// Skip records a file that produced no output.
type Skip struct {
	Key    market.FileKey
	Reason string
	Err    error
}

// Result summarises a run.
type Result struct {
	Written []string
	Skipped []Skip
}

// Run computes the newest file of every (ticker, timeframe) in inDir and
// writes the result to outDir under the same name. A file that cannot be
// read or whose indicators fail is logged and skipped. Write failures stop
// the run.
func (r *Runner) Run(ctx context.Context, p *Plan, inDir, outDir string) (*Result, error) {
	start := time.Now()
	defer func() {
		r.metrics.RunDuration.WithLabelValues("indicators").Observe(time.Since(start).Seconds())
	}()

	keys, err := market.ListFiles(inDir, p.order...)
	if err != nil {
		return nil, fmt.Errorf("list ticker files: %w", err)
	}
	keys = market.Latest(keys)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create indicators dir: %w", err)
	}

	r.log.Info("indicator run started",
		logger.String("config", p.ID),
		logger.Int("files", len(keys)),
		logger.Int("workers", r.workers))

	written := make([]string, len(keys))
	skipped := make([]*Skip, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, k := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, skip, err := r.process(p, k, outDir)
			if err != nil {
				return err
			}
			written[i], skipped[i] = path, skip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range keys {
		if written[i] != "" {
			res.Written = append(res.Written, written[i])
		}
		if skipped[i] != nil {
			res.Skipped = append(res.Skipped, *skipped[i])
		}
	}
	sort.Strings(res.Written)

	r.log.Info("indicator run finished",
		logger.String("config", p.ID),
		logger.Int("written", len(res.Written)),
		logger.Int("skipped", len(res.Skipped)),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (r *Runner) process(p *Plan, k market.FileKey, outDir string) (string, *Skip, error) {
	tf := string(k.Timeframe)
	skip := func(reason string, err error) (string, *Skip, error) {
		r.metrics.FilesSkipped.WithLabelValues(tf, reason).Inc()
		r.log.Warn("skipping file",
			logger.String("path", k.Path),
			logger.String("reason", reason),
			logger.Err(err))
		return "", &Skip{Key: k, Reason: reason, Err: err}, nil
	}

	f, err := k.Load()
	if err != nil {
		return skip("read", err)
	}
	out, err := p.pipelines[k.Timeframe].Apply(f)
	if err != nil {
		var ce *indicators.ComputationError
		if errors.As(err, &ce) {
			r.metrics.PluginErrors.WithLabelValues(ce.Plugin).Inc()
		}
		return skip("computation", err)
	}

	path := filepath.Join(outDir, market.FileName(k.Ticker, k.Timeframe, k.DateStamp))
	if err := market.WriteCSVFile(path, out); err != nil {
		return "", nil, fmt.Errorf("write %s: %w", path, err)
	}
	r.metrics.FilesProcessed.WithLabelValues(tf).Inc()
	r.log.Debug("wrote indicators",
		logger.String("ticker", k.Ticker),
		logger.String("timeframe", tf),
		logger.Int("rows", out.Len()))
	return path, nil, nil
}
