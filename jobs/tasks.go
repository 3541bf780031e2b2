package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCostRecompute recomputes the cost of one mixed product.
	TaskCostRecompute = "catalog:cost_recompute"
	// TaskCostRefreshAll recomputes every mixed product.
	TaskCostRefreshAll = "catalog:cost_refresh_all"
)

// CostRecomputePayload identifies the product to recompute.
type CostRecomputePayload struct {
	ProductID int64 `json:"product_id"`
}

// CostRefreshAllPayload carries scheduling metadata.
type CostRefreshAllPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewCostRecomputeTask constructs an Asynq task for a single product.
func NewCostRecomputeTask(productID int64) (*asynq.Task, error) {
	body, err := json.Marshal(CostRecomputePayload{ProductID: productID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCostRecompute, body, asynq.Queue(QueueDefault)), nil
}

// NewCostRefreshAllTask constructs the periodic full refresh task.
func NewCostRefreshAllTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CostRefreshAllPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCostRefreshAll, body, asynq.Queue(QueueDefault)), nil
}
