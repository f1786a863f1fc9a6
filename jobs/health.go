package jobs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/shepherd-hq/shepherd/internal/platform/httpx"
)

// Queue states reported by the health endpoint.
const (
	QueueStatusOK       = "ok"
	QueueStatusDegraded = "degraded"
)

// maxHealthyLatency is the oldest a pending task may be before the queue
// reports degraded.
const maxHealthyLatency = 15 * time.Minute

// QueueInspector reports queue state. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler serves the queue health endpoint.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs the health handler. A nil inspector reports an idle
// default queue.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.health)
}

type queueHealth struct {
	Queue          string  `json:"queue"`
	Status         string  `json:"status"`
	Pending        int     `json:"pending"`
	Active         int     `json:"active"`
	Scheduled      int     `json:"scheduled"`
	Retry          int     `json:"retry"`
	Archived       int     `json:"archived"`
	LatencySeconds float64 `json:"latency_seconds"`
	Paused         bool    `json:"paused"`
}

func summarize(info *asynq.QueueInfo) queueHealth {
	if info == nil {
		return queueHealth{Queue: QueueDefault, Status: QueueStatusOK}
	}
	out := queueHealth{
		Queue:          info.Queue,
		Status:         QueueStatusOK,
		Pending:        info.Pending,
		Active:         info.Active,
		Scheduled:      info.Scheduled,
		Retry:          info.Retry,
		Archived:       info.Archived,
		LatencySeconds: info.Latency.Seconds(),
		Paused:         info.Paused,
	}
	if info.Paused || info.Latency > maxHealthyLatency {
		out.Status = QueueStatusDegraded
	}
	return out
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, summarize(nil))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "job queue unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, summarize(info))
}
