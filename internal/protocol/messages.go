package protocol

import "time"

// TaskProgress is broadcast on the bus at each pipeline stage boundary so
// push-based observers can follow a run without polling.
type TaskProgress struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Error     bool      `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

const SubjectTaskProgressPrefix = "task.progress"

// SubjectTaskProgress returns the per-task progress subject.
func SubjectTaskProgress(taskID string) string {
	return SubjectTaskProgressPrefix + "." + taskID
}
