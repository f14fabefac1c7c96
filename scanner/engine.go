package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/screener/criteria"
	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/internal/metrics"
	"github.com/rustyeddy/screener/market"
)

// Options configures an Engine. Zero values pick the defaults.
type Options struct {
	Registry *criteria.Registry
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Workers  int
}

// Engine prepares and runs scans.
type Engine struct {
	registry *criteria.Registry
	log      *logger.Logger
	metrics  *metrics.Metrics
	workers  int
}

// New returns an engine.
func New(opts Options) *Engine {
	e := &Engine{
		registry: opts.Registry,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		workers:  opts.Workers,
	}
	if e.registry == nil {
		e.registry = criteria.Default
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// slot is one occurrence of a criterion with its bound parameters.
type slot struct {
	name  string
	occ   int
	bound criteria.Bound
}

// column namespaces a diagnostic field. The first occurrence of a
// criterion carries no index.
func (s slot) column(field string) string {
	if s.occ == 0 {
		return s.name + "_" + field
	}
	return fmt.Sprintf("%s_%d_%s", s.name, s.occ, field)
}

// Plan is a scan with every criterion resolved and bound.
type Plan struct {
	Name string
	Spec *Spec
	// order lists the timeframes the plan evaluates: rank order for simple
	// and list scans, configuration order for advanced ones.
	order []market.Timeframe
	slots map[market.Timeframe][]slot
}

// Timeframes returns the timeframes the plan evaluates.
func (p *Plan) Timeframes() []market.Timeframe {
	return append([]market.Timeframe(nil), p.order...)
}

// Prepare resolves every criterion of spec and binds its parameters. An
// unknown criterion, a malformed parameter set, or a parameter list too
// short for the occurrences of its criterion fails here, before any file
// is read.
func (e *Engine) Prepare(name string, spec *Spec) (*Plan, error) {
	if err := spec.Validate(); err != nil {
		return nil, &ConfigError{Scan: name, Err: err}
	}

	p := &Plan{Name: name, Spec: spec, slots: make(map[market.Timeframe][]slot)}
	add := func(tf market.Timeframe, names []string) error {
		slots, err := e.bind(name, tf, names, spec.Params)
		if err != nil {
			return err
		}
		p.order = append(p.order, tf)
		p.slots[tf] = slots
		return nil
	}

	switch spec.Mode {
	case Advanced:
		for _, st := range spec.Steps {
			if err := add(st.Timeframe, st.Criteria); err != nil {
				return nil, err
			}
		}
	default:
		tfs := market.Timeframes()
		if spec.Timeframe != "" {
			tfs = []market.Timeframe{spec.Timeframe}
		}
		for _, tf := range tfs {
			if err := add(tf, spec.Criteria); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func (e *Engine) bind(scan string, tf market.Timeframe, names []string, ps Params) ([]slot, error) {
	seen := make(map[string]int)
	slots := make([]slot, 0, len(names))
	for _, n := range names {
		occ := seen[n]
		seen[n]++

		raw, err := ps.Resolve(n, tf, occ)
		if err != nil {
			return nil, &ConfigError{Scan: scan, Criterion: n, Timeframe: tf, Err: err}
		}
		b, err := e.registry.Bind(n, raw)
		if err != nil {
			var nf *criteria.NotFoundError
			if errors.As(err, &nf) {
				return nil, fmt.Errorf("scan %s: %w", scan, err)
			}
			return nil, &ConfigError{Scan: scan, Criterion: n, Timeframe: tf, Err: err}
		}
		slots = append(slots, slot{name: n, occ: occ, bound: b})
	}
	return slots, nil
}

// RunDir scans the newest indicator file of every (ticker, timeframe) in
// dir.
func (e *Engine) RunDir(ctx context.Context, p *Plan, dir string) (*Table, error) {
	keys, err := market.ListFiles(dir, p.order...)
	if err != nil {
		return nil, fmt.Errorf("list indicator files: %w", err)
	}
	return e.Run(ctx, p, keys)
}

// Run evaluates p over keys. Tickers are scanned concurrently; rows come
// back ordered by ticker, then timeframe.
func (e *Engine) Run(ctx context.Context, p *Plan, keys []market.FileKey) (*Table, error) {
	start := time.Now()
	defer func() {
		e.metrics.RunDuration.WithLabelValues("scan").Observe(time.Since(start).Seconds())
	}()

	keys = append([]market.FileKey(nil), keys...)
	market.SortKeys(keys)
	tickers, files := market.GroupByTicker(market.Latest(keys))

	e.log.Info("scan started",
		logger.String("scan", p.Name),
		logger.String("mode", string(p.Spec.Mode)),
		logger.String("logic", string(p.Spec.Logic)),
		logger.Int("tickers", len(tickers)))

	results := make([][]Row, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, ticker := range tickers {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.scanTicker(p, ticker, files[ticker])
			e.metrics.TickersScanned.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []Row
	for _, r := range results {
		rows = append(rows, r...)
	}
	e.metrics.ScanMatches.WithLabelValues(p.Name).Add(float64(len(rows)))
	e.log.Info("scan finished",
		logger.String("scan", p.Name),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))
	return NewTable(rows), nil
}

// scanTicker evaluates one ticker's files.
func (e *Engine) scanTicker(p *Plan, ticker string, files map[market.Timeframe]market.FileKey) []Row {
	if p.Spec.Mode != Advanced {
		var rows []Row
		for _, tf := range p.order {
			k, ok := files[tf]
			if !ok {
				continue
			}
			if row, ok := e.evaluate(k, p.slots[tf]); ok {
				rows = append(rows, row)
			}
		}
		return rows
	}

	var missing []string
	for _, tf := range p.order {
		if _, ok := files[tf]; !ok {
			missing = append(missing, string(tf))
			e.metrics.FilesSkipped.WithLabelValues(string(tf), "missing_timeframe").Inc()
		}
	}
	if len(missing) > 0 {
		e.log.Debug("skipping ticker",
			logger.String("ticker", ticker),
			logger.Strings("missing", missing))
		return nil
	}

	var rows []Row
	for _, tf := range p.order {
		row, ok := e.evaluate(files[tf], p.slots[tf])
		if !ok {
			if p.Spec.Logic == And {
				return nil
			}
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// evaluate loads one file and runs every slot on it. All slots must match.
func (e *Engine) evaluate(k market.FileKey, slots []slot) (Row, bool) {
	f, err := k.Load()
	if err != nil {
		e.log.Warn("cannot load indicator file",
			logger.String("path", k.Path),
			logger.Err(err))
		return Row{}, false
	}
	if f.Len() == 0 {
		return Row{}, false
	}

	var fields []criteria.Field
	for _, s := range slots {
		m, err := criteria.Evaluate(s.bound, f)
		if err != nil {
			e.metrics.CriterionErrors.WithLabelValues(s.name).Inc()
			e.log.Warn("criterion failed",
				logger.String("ticker", k.Ticker),
				logger.String("timeframe", string(k.Timeframe)),
				logger.String("criterion", s.name),
				logger.Err(err))
			return Row{}, false
		}
		if m == nil {
			return Row{}, false
		}
		for _, fld := range m.Fields {
			fields = append(fields, criteria.Field{Name: s.column(fld.Name), Value: fld.Value})
		}
	}

	close, _ := f.Last(market.Close)
	return Row{
		Date:      f.LastDate(),
		Ticker:    k.Ticker,
		Timeframe: k.Timeframe,
		Close:     close,
		Fields:    fields,
	}, true
}
