package importer

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler re-runs a job on a cron spec. Specs take a leading seconds
// field, and descriptors such as "@every 1h" work too.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
	timeout time.Duration
}

func NewScheduler(baseCtx context.Context, logger *zap.Logger) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		baseCtx: baseCtx,
		timeout: 5 * time.Minute,
	}
}

func (s *Scheduler) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
		defer cancel()
		job(ctx)
	})
}

// ScheduleImport registers im.Run under spec.
func (s *Scheduler) ScheduleImport(spec string, im *Importer) error {
	_, err := s.Add(spec, func(ctx context.Context) {
		_, _ = im.Run(ctx)
	})
	return err
}

func (s *Scheduler) Start() {
	s.logger.Info("cron started")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cron stopped")
}
