package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"afterpay-payment-api/queue"
	"afterpay-payment-api/utils"
)

// EventHandler receives order lifecycle triggers from the host shop and
// enqueues them for the reconciliation worker.
type EventHandler struct {
	queue *queue.Queue
}

func NewEventHandler(q *queue.Queue) *EventHandler {
	return &EventHandler{queue: q}
}

func (h *EventHandler) enqueue(w http.ResponseWriter, r *http.Request, jobType queue.JobType) {
	orderID := utils.Atoi(mux.Vars(r)["id"])
	if orderID == 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.queue.Enqueue(r.Context(), jobType, orderID); err != nil {
		log.Printf("Failed to enqueue %s for order %d: %v", jobType, orderID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to enqueue order event")
		return
	}

	utils.SendSuccessResponse(w, "event queued", map[string]interface{}{
		"orderId": orderID,
		"type":    jobType,
	})
}

func (h *EventHandler) Capture(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, queue.JobTypeCaptureOrder)
}

func (h *EventHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, queue.JobTypeVoidOrder)
}

func (h *EventHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, queue.JobTypeRefundOrder)
}

// FailedJobs lists the jobs waiting for operator review.
func (h *EventHandler) FailedJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.FailedJobs(r.Context())
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to list failed jobs")
		return
	}

	utils.SendSuccessResponse(w, "failed jobs", jobs)
}

// RetryJob requeues one failed job after an operator resolved the problem.
func (h *EventHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	if jobID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.queue.RetryJob(r.Context(), jobID); err != nil {
		log.Printf("Failed to requeue job %s: %v", jobID, err)
		utils.SendErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	utils.SendSuccessResponse(w, "job requeued", map[string]string{"jobId": jobID})
}
