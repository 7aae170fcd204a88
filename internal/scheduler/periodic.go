package scheduler

import (
	"context"
	"fmt"
	"time"

	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues a crawl of every active source on the configured cron
// schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	cron      string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	cron := cfg.GetCrawlCron()
	if cron == "" {
		return nil, fmt.Errorf("crawl cron not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(cron, NewCrawlAllTask(), asynq.Queue(queueName(cfg)), asynq.Unique(crawlAllUniqueness)); err != nil {
		return nil, fmt.Errorf("register crawl schedule %q: %w", cron, err)
	}

	return &Periodic{scheduler: scheduler, cron: cron, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("crawl scheduler failed to start", "error", err)
		return
	}
	p.log.Info("crawl scheduler started", "cron", p.cron)

	<-ctx.Done()
	p.scheduler.Shutdown()
}
