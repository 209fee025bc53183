package daemon

import (
	"context"
	"log/slog"
	"time"

	"echoscribe/internal/database"
)

// CleanupTask periodically removes expired organisation invites.
func CleanupTask(db *database.Database, logger *slog.Logger) Task {
	return func(ctx context.Context, name string) error {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Cleanup task shutting down", "task", name)
				return nil
			case <-ticker.C:
				deleted, err := db.DeleteExpiredOrganisationInvites(ctx)
				if err != nil {
					logger.Error("Failed to delete expired invites", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Debug("Deleted expired invites", "count", deleted)
				}
			}
		}
	}
}
