// Package scheduler runs screener tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rustyeddy/screener/internal/logger"
)

// Task is a unit of scheduled work.
type Task func(ctx context.Context) error

// Scheduler owns the cron instance and the named tasks registered on it.
type Scheduler struct {
	Cron *cron.Cron
	Log  *logger.Logger
	Ctx  context.Context

	mu    sync.Mutex
	tasks map[string]Task
}

// New builds a scheduler using standard five-field cron expressions. A
// task still running when its next tick fires is skipped for that tick.
func New(ctx context.Context, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})))
	return &Scheduler{
		Cron:  c,
		Log:   log,
		Ctx:   ctx,
		tasks: make(map[string]Task),
	}
}

// Register adds task under name with the cron spec.
func (s *Scheduler) Register(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[name]; dup {
		return fmt.Errorf("register %s task: already registered", name)
	}
	if _, err := s.Cron.AddFunc(spec, func() { s.run(name, task) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.tasks[name] = task
	s.Log.Info("task registered", logger.String("task", name), logger.String("cron", spec))
	return nil
}

// Tasks lists the registered task names.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for n := range s.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Start begins firing tasks in the background.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", logger.Int("tasks", len(s.Cron.Entries())))
}

// Stop stops the cron and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// Next reports when the earliest registered task fires next.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.Cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

// RunNow executes the named task synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.run(name, task)
}

func (s *Scheduler) run(name string, task Task) error {
	if err := s.Ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.Log.Info("task started", logger.String("task", name))
	err := task(s.Ctx)
	if err != nil {
		s.Log.Error("task failed",
			logger.String("task", name),
			logger.Duration("elapsed", time.Since(start)),
			logger.Err(err))
		return err
	}
	s.Log.Info("task finished",
		logger.String("task", name),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// cronLogger adapts the logger to cron.Logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kv(keysAndValues), logger.Err(err))...)
}

func kv(pairs []any) []logger.Field {
	fields := make([]logger.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(pairs[i]), pairs[i+1]))
	}
	return fields
}
