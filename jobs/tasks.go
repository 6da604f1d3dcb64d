package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOverdueRescan is the task type for the overdue sale sweep.
	TaskTypeOverdueRescan = "ledger:rescan_overdue"
)

// OverdueRescanPayload carries the trigger metadata for a rescan run.
type OverdueRescanPayload struct {
	RequestedAt time.Time `json:"requested_at"`
	Reason      string    `json:"reason"`
}

// NewOverdueRescanTask constructs an Asynq task.
func NewOverdueRescanTask(payload OverdueRescanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverdueRescan, data), nil
}
