package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type JobType string

// Order lifecycle events driving the reconciliation engine.
const (
	JobTypeCaptureOrder JobType = "capture_order"
	JobTypeVoidOrder    JobType = "void_order"
	JobTypeRefundOrder  JobType = "refund_order"
)

// Job is one queued order event. Failed jobs land on the failed list for
// operator review and are never requeued automatically.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	OrderID   int       `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
	LastError string    `json:"last_error,omitempty"`
	FailedAt  time.Time `json:"failed_at,omitempty"`
}

type Queue struct {
	client     *redis.Client
	queueName  string
	processing string
	failed     string
}

func NewQueue(redisURL, queueName string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %v", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Queue{
		client:     client,
		queueName:  queueName,
		processing: queueName + ":processing",
		failed:     queueName + ":failed",
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, orderID int) error {
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		OrderID:   orderID,
		CreatedAt: time.Now(),
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %v", err)
	}

	if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to push job to queue: %v", err)
	}

	log.Printf("Enqueued job %s of type %s for order %d", job.ID, job.Type, orderID)
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job from queue: %v", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BLPOP result format")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %v", err)
	}

	if err := q.client.RPush(ctx, q.processing, result[1]).Err(); err != nil {
		log.Printf("Warning: Failed to move job %s to processing queue: %v", job.ID, err)
	}

	return &job, nil
}

func (q *Queue) CompleteJob(ctx context.Context, job *Job) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %v", err)
	}

	if err := q.client.LRem(ctx, q.processing, 1, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing queue: %v", err)
	}

	log.Printf("Completed job %s of type %s", job.ID, job.Type)
	return nil
}

// FailJob moves a job to the failed list. Reconciliation failures are
// precondition violations that an operator must resolve, so there is no
// automatic retry path.
func (q *Queue) FailJob(ctx context.Context, job *Job, jobErr error) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %v", err)
	}
	if err := q.client.LRem(ctx, q.processing, 1, jobJSON).Err(); err != nil {
		log.Printf("Warning: Failed to remove job %s from processing queue: %v", job.ID, err)
	}

	job.LastError = jobErr.Error()
	job.FailedAt = time.Now()

	failedJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal failed job: %v", err)
	}
	if err := q.client.RPush(ctx, q.failed, failedJSON).Err(); err != nil {
		return fmt.Errorf("failed to push job to failed queue: %v", err)
	}

	log.Printf("Job %s of type %s moved to failed queue: %v", job.ID, job.Type, jobErr)
	return nil
}

// FailedJobs lists the jobs waiting for operator review.
func (q *Queue) FailedJobs(ctx context.Context) ([]Job, error) {
	entries, err := q.client.LRange(ctx, q.failed, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %v", err)
	}

	jobs := make([]Job, 0, len(entries))
	for _, entry := range entries {
		var job Job
		if err := json.Unmarshal([]byte(entry), &job); err != nil {
			log.Printf("Warning: Failed to unmarshal failed job: %v", err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// RetryJob moves one failed job back to the main queue after an operator
// resolved the underlying problem.
func (q *Queue) RetryJob(ctx context.Context, jobID string) error {
	entries, err := q.client.LRange(ctx, q.failed, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list failed jobs: %v", err)
	}

	for _, entry := range entries {
		var job Job
		if err := json.Unmarshal([]byte(entry), &job); err != nil {
			log.Printf("Warning: Failed to unmarshal failed job: %v", err)
			continue
		}
		if job.ID != jobID {
			continue
		}

		if err := q.client.LRem(ctx, q.failed, 1, entry).Err(); err != nil {
			return fmt.Errorf("failed to remove job from failed queue: %v", err)
		}

		job.LastError = ""
		job.FailedAt = time.Time{}
		jobJSON, _ := json.Marshal(job)

		if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
			return fmt.Errorf("failed to push job to main queue: %v", err)
		}

		log.Printf("Manually requeued job %s of type %s", job.ID, job.Type)
		return nil
	}

	return fmt.Errorf("job %s not found in failed queue", jobID)
}

func (q *Queue) Client() *redis.Client {
	return q.client
}

func (q *Queue) Close() error {
	return q.client.Close()
}
