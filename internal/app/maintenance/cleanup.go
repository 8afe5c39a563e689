package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/upskeel/lms/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultTokenSpec          = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultCacheSpec          = "@every 10m"
	jobTimeout                = 5 * time.Minute
)

const (
	JobTokenCleanup = "token_cleanup"
	JobAuditCleanup = "audit_cleanup"
	JobCacheCleanup = "cache_cleanup"
)

// TokenPurger removes expired or consumed confirmation and reset tokens.
type TokenPurger interface {
	PurgeTokens(ctx context.Context) (int64, error)
}

// AuditPruner removes audit records older than the retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// CachePurger removes expired entries from the SQL cache table.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunRecorder receives the outcome of every job run.
type RunRecorder interface {
	Record(job, result, message string, duration time.Duration)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
}

// Cleaner schedules token purges, audit retention and cache expiry.
type Cleaner struct {
	tokens    TokenPurger
	audit     AuditPruner
	cache     CachePurger
	recorder  RunRecorder
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	tokenSchedule string
	auditSchedule string
	cacheSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithCachePurger enables expiry of the SQL cache table.
func WithCachePurger(purger CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// WithRecorder reports job outcomes, typically to the monitoring job tracker.
func WithRecorder(recorder RunRecorder) Option {
	return func(cleaner *Cleaner) {
		cleaner.recorder = recorder
	}
}

// WithSchedules overrides the cron specifications. Blank values keep the defaults.
func WithSchedules(tokens, audit, cache string) Option {
	return func(cleaner *Cleaner) {
		if tokens != "" {
			cleaner.tokenSchedule = tokens
		}
		if audit != "" {
			cleaner.auditSchedule = audit
		}
		if cache != "" {
			cleaner.cacheSchedule = cache
		}
	}
}

// NewCleaner constructs a Cleaner. Nil dependencies skip their job.
func NewCleaner(tokens TokenPurger, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:        tokens,
		audit:         audit,
		retention:     defaultAuditRetentionDays,
		tokenSchedule: defaultTokenSpec,
		auditSchedule: defaultAuditSpec,
		cacheSchedule: defaultCacheSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.tokens != nil {
		jobs = append(jobs, job{name: JobTokenCleanup, schedule: c.tokenSchedule, run: c.tokens.PurgeTokens})
	}
	if c.audit != nil && c.retention > 0 {
		jobs = append(jobs, job{name: JobAuditCleanup, schedule: c.auditSchedule, run: func(ctx context.Context) (int64, error) {
			return c.audit.CleanupOlderThan(ctx, c.retention)
		}})
	}
	if c.cache != nil {
		jobs = append(jobs, job{name: JobCacheCleanup, schedule: c.cacheSchedule, run: c.cache.PurgeExpired})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			_ = c.execute(ctx, j)
		}); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.schedule, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and aggregates failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	start := time.Now()
	removed, err := j.run(ctx)
	duration := time.Since(start)

	if err != nil {
		c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
		c.record(j.name, "failure", err.Error(), duration)
		return fmt.Errorf("%s: %w", j.name, err)
	}

	if removed > 0 {
		c.log.Info("maintenance job completed",
			zap.String("job", j.name),
			zap.Int64("removed", removed),
			zap.Duration("duration", duration),
		)
	}
	c.record(j.name, "success", "", duration)
	return nil
}

func (c *Cleaner) record(name, result, message string, duration time.Duration) {
	if c.recorder != nil {
		c.recorder.Record(name, result, message, duration)
	}
}
