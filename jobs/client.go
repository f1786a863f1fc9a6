package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueSessionPrune queues an immediate prune run. A prune already waiting
// in the queue is not duplicated.
func (c *Client) EnqueueSessionPrune(ctx context.Context) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs: client not configured")
	}
	return c.client.EnqueueContext(ctx, NewSessionPruneTask(),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.TaskID(TaskSessionPrune+":manual"),
	)
}

// Close releases client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
