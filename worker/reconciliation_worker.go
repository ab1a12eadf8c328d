package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"afterpay-payment-api/queue"
	"afterpay-payment-api/services/reconciliation"
)

// Worker drains order-event jobs and hands them to the reconciliation
// engine. A failing job goes straight to the failed list; only an operator
// requeues it.
type Worker struct {
	queue     *queue.Queue
	engine    *reconciliation.Engine
	shutdown  chan struct{}
	isRunning bool
}

func NewWorker(q *queue.Queue, engine *reconciliation.Engine) *Worker {
	return &Worker{
		queue:    q,
		engine:   engine,
		shutdown: make(chan struct{}),
	}
}

// Start begins processing jobs with the given number of goroutines.
func (w *Worker) Start(concurrency int) {
	w.isRunning = true

	for i := 0; i < concurrency; i++ {
		go w.processJobs(i)
	}

	log.Printf("Started %d reconciliation worker goroutines", concurrency)
}

// Stop signals every worker goroutine to exit after its current job.
func (w *Worker) Stop() {
	if !w.isRunning {
		return
	}

	log.Println("Stopping reconciliation worker...")
	close(w.shutdown)
	w.isRunning = false
}

func (w *Worker) processJobs(workerID int) {
	log.Printf("Worker %d starting", workerID)

	for {
		select {
		case <-w.shutdown:
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			job, err := w.queue.Dequeue(ctx, 5*time.Second)
			cancel()

			if err != nil {
				log.Printf("Worker %d: Error dequeuing job: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if job == nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}

			log.Printf("Worker %d processing job %s of type %s for order %d",
				workerID, job.ID, job.Type, job.OrderID)

			jobErr := w.processJob(job)
			if jobErr != nil {
				log.Printf("Worker %d: Error processing job %s: %v", workerID, job.ID, jobErr)

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if failErr := w.queue.FailJob(ctx, job, jobErr); failErr != nil {
					log.Printf("Worker %d: Error marking job %s as failed: %v", workerID, job.ID, failErr)
				}
				cancel()
				continue
			}

			ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			if completeErr := w.queue.CompleteJob(ctx, job); completeErr != nil {
				log.Printf("Worker %d: Error marking job %s as complete: %v", workerID, job.ID, completeErr)
			}
			cancel()
		}
	}
}

func (w *Worker) processJob(job *queue.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch job.Type {
	case queue.JobTypeCaptureOrder:
		return w.engine.Capture(ctx, job.OrderID)
	case queue.JobTypeVoidOrder:
		return w.engine.Void(ctx, job.OrderID)
	case queue.JobTypeRefundOrder:
		return w.engine.Refund(ctx, job.OrderID)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
