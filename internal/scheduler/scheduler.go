package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"realm-tracker/internal/config"
	"realm-tracker/internal/constants"
	"realm-tracker/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Scheduler periodically imports exports dropped into the inbox directory.
type Scheduler struct {
	cron     *cron.Cron
	importer *service.ImportService
	inboxDir string
	schedule string
	season   string
	// base context of scheduled runs, cancelled on Stop
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

func NewScheduler(cfg *config.Config, importer *service.ImportService, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		importer: importer,
		inboxDir: cfg.InboxDir,
		schedule: cfg.InboxSchedule,
		season:   cfg.DefaultSeason,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register ties the scheduler to the application lifecycle. Nothing is
// scheduled when no inbox directory is configured.
func Register(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			s.Stop(ctx)
			return nil
		},
	})
}

func (s *Scheduler) Start() error {
	if s.inboxDir == "" {
		s.logger.Info().Msg("inbox directory not configured, scheduler disabled")
		return nil
	}

	for _, dir := range []string{s.inboxDir, filepath.Join(s.inboxDir, processedDir), filepath.Join(s.inboxDir, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to prepare inbox: %w", err)
		}
	}

	// each file gets its own ingest timeout inside the importer
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(s.ctx); err != nil {
			s.logger.Error().Err(err).Msg("inbox import failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid inbox schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("inbox", s.inboxDir).Str("schedule", s.schedule).Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) {
	defer s.cancel()
	if s.inboxDir == "" {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stopped before running job finished, cancelling it")
	}
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow imports every export waiting in the inbox and files each one under
// processed/ or failed/. It returns the number of files handled.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	paths, err := service.CollectExports([]string{s.inboxDir})
	if err != nil {
		return 0, fmt.Errorf("failed to scan inbox: %w", err)
	}
	if len(paths) == 0 {
		return 0, nil
	}

	s.logger.Info().Int("files", len(paths)).Msg("importing inbox")

	results, err := s.importer.ImportFiles(ctx, paths, s.season, constants.DefaultImportConcurrency)
	for _, res := range results {
		dest := processedDir
		if res.Err != nil {
			dest = failedDir
			s.logger.Warn().Err(res.Err).Str("path", res.Path).Msg("inbox export failed")
		} else {
			s.logger.Info().
				Str("path", res.Path).
				Str("snapshot_id", res.Summary.Snapshot.ID).
				Int("players", res.Summary.PlayersProcessed).
				Msg("inbox export ingested")
		}

		target := filepath.Join(s.inboxDir, dest, filepath.Base(res.Path))
		if mvErr := os.Rename(res.Path, target); mvErr != nil {
			s.logger.Error().Err(mvErr).Str("path", res.Path).Msg("failed to move export out of inbox")
		}
	}

	return len(results), err
}
