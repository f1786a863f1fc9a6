package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/shepherd-hq/shepherd/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPrune deletes expired user_sessions rows.
	TaskSessionPrune = "auth:sessions:prune"
	// SessionPruneSchedule runs the prune job once an hour.
	SessionPruneSchedule = "@hourly"
)

// SessionPruner removes expired session records.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// NewSessionPruneTask constructs the prune task. It carries no payload.
func NewSessionPruneTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPrune, nil)
}

// SessionPruneHandler returns the asynq handler for TaskSessionPrune.
func SessionPruneHandler(pruner SessionPruner, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		return metrics.Run(TaskSessionPrune, func() error {
			n, err := pruner.PruneSessions(ctx)
			if err != nil {
				logger.Error("prune sessions", slog.Any("error", err))
				return err
			}
			metrics.AddPrunedSessions(n)
			logger.Info("pruned sessions", slog.Int64("deleted", n))
			return nil
		})
	}
}
