package postsource

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/orgball2608/reel-feed-service/pkg/config"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
)

// CleanupScheduler runs a daily retention job that drops posts older than the
// configured window.
type CleanupScheduler struct {
	source Source
	logger logger.Logger
	config *config.Config
}

func NewCleanupScheduler(source Source, log logger.Logger, cfg *config.Config) *CleanupScheduler {
	return &CleanupScheduler{
		source: source,
		logger: log.WithComponent("CleanupScheduler"),
		config: cfg,
	}
}

// Schedule sets up a daily job to clean up old posts
func (s *CleanupScheduler) Schedule(ctx context.Context) error {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.Local
		s.logger.Warn("Failed to load Asia/Ho_Chi_Minh timezone, using local timezone", "error", err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("failed to create cleanup scheduler: %w", err)
	}

	retention := time.Duration(s.config.Feed.RetentionDays) * 24 * time.Hour

	// Schedule a job to run at 3:00 AM every day
	_, err = scheduler.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0)),
		),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.logger.Info("Context cancelled, stopping post cleanup job")
				return
			}

			s.logger.Info("Starting scheduled post cleanup job")

			cleanupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			rowsDeleted, err := s.source.CleanupOldPosts(cleanupCtx, retention)
			if err != nil {
				s.logger.Error("Failed to clean up old posts", "error", err)
				return
			}

			s.logger.Info("Post cleanup completed successfully", "rows_deleted", rowsDeleted)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule post cleanup: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.logger.Info("Stopping post cleanup scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.logger.Error("Failed to shut down cleanup scheduler", "error", err)
		}
	}()

	return nil
}
