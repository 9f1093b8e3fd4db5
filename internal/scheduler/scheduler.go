package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"IndexDeviation/internal/batch"
	"IndexDeviation/internal/logger"
	"IndexDeviation/internal/model"
	"IndexDeviation/internal/notifier"
)

var (
	errStopping = errors.New("scheduler is stopping")
	errBusy     = errors.New("a triggered batch is still running")
)

// BatchRunner runs one batch over a set of indices.
type BatchRunner interface {
	Run(ctx context.Context, specs []model.IndexSpec) *batch.Summary
}

// Sender delivers a formatted report.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler triggers batch runs on a cron schedule, skipping days on which
// none of the tracked exchanges trades.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   BatchRunner
	Notifier Sender // optional
	Specs    []model.IndexSpec
	Ctx      context.Context

	isTradingDay func(time.Time) bool
	now          func() time.Time
	log          *logger.Entry

	mu        sync.Mutex
	last      *batch.Summary
	stopped   bool
	triggered bool
	running   sync.WaitGroup
}

// NewScheduler creates a Scheduler whose cron expressions carry a seconds field
// and are evaluated in loc.
func NewScheduler(ctx context.Context, runner BatchRunner, specs []model.IndexSpec, loc *time.Location, log *logger.Log) *Scheduler {
	if log == nil {
		log = logger.Get()
	}
	if loc == nil {
		loc = time.Local
	}
	cals := []*TradingCalendar{NewTradingCalendar("xshg", loc), NewTradingCalendar("xhkg", loc)}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		Runner:       runner,
		Specs:        specs,
		Ctx:          ctx,
		isTradingDay: func(t time.Time) bool { return AnyTradingDay(t, cals...) },
		now:          time.Now,
		log:          log.WithComponent("scheduler"),
	}
}

// Register adds the daily batch job.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running batches to finish,
// including those started by Trigger.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	<-s.Cron.Stop().Done()
	s.running.Wait()
	s.log.Info("scheduler stopped")
}

// Trigger starts a batch in the background, ignoring the trading calendar.
// Only one triggered batch runs at a time and none start once Stop was called.
func (s *Scheduler) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errStopping
	}
	if s.triggered {
		return errBusy
	}
	s.triggered = true
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.execute()
		s.mu.Lock()
		s.triggered = false
		s.mu.Unlock()
	}()
	return nil
}

// RunNow executes a batch immediately, ignoring the trading calendar.
func (s *Scheduler) RunNow() *batch.Summary {
	return s.execute()
}

// Last returns the summary of the most recent batch, or nil.
func (s *Scheduler) Last() *batch.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run", "立即计算":
		if err := s.Trigger(); err != nil {
			return "未开始计算: " + err.Error()
		}
		return "已开始计算，完成后发送结果"
	case "/last", "最近结果":
		if last := s.Last(); last != nil {
			return notifier.FormatRunReport(last)
		}
		return "尚无运行记录"
	case "/indices", "指数列表":
		return notifier.FormatIndexList(s.Specs)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) dailyTask() {
	s.runIfTrading()
}

// runIfTrading returns the summary it ran, or nil when the day was skipped.
func (s *Scheduler) runIfTrading() *batch.Summary {
	today := s.now()
	if !s.isTradingDay(today) {
		s.log.WithField("date", today.Format(model.DateLayout)).Info("no trading session today, skipping batch")
		return nil
	}
	s.log.Info("running scheduled batch")
	return s.execute()
}

func (s *Scheduler) execute() *batch.Summary {
	sum := s.Runner.Run(s.Ctx, s.Specs)
	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()
	s.trySend(notifier.FormatRunReport(sum))
	return sum
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
