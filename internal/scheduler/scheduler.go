package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// ReportGenerator produces and publishes the daily report.
type ReportGenerator interface {
	Today() time.Time
	Generate(ctx context.Context, day time.Time) (*models.DailyReport, error)
}

// Auditor runs the consistency audit.
type Auditor interface {
	Run(ctx context.Context) (*models.AuditReport, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	reports ReportGenerator
	auditor Auditor
	cfg     config.ReportingConfig
	logger  *zap.Logger
}

// NewScheduler creates a scheduler running in the reporting timezone.
func NewScheduler(cfg config.ReportingConfig, reports ReportGenerator, auditor Auditor, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		reports: reports,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDailyReport); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.AuditSchedule, s.runAudit); err != nil {
		return fmt.Errorf("schedule audit: %w", err)
	}

	s.logger.Info("starting scheduler",
		zap.String("report_schedule", s.cfg.CronSchedule),
		zap.String("audit_schedule", s.cfg.AuditSchedule),
		zap.String("timezone", s.cfg.Timezone))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.reports.Generate(ctx, s.reports.Today()); err != nil {
		s.logger.Error("failed to generate daily report", zap.Error(err))
	}
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.auditor.Run(ctx)
	if err != nil {
		s.logger.Error("audit failed", zap.Error(err))
		return
	}
	for _, f := range report.Findings {
		s.logger.Warn("audit finding",
			zap.String("entity", f.Entity),
			zap.String("id", f.ID),
			zap.String("rule", f.Rule),
			zap.String("detail", f.Detail))
	}
}
