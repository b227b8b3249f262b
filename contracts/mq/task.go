package mq

// TaskCreatedPayload 任务创建事件
type TaskCreatedPayload struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
	TraceID   string `json:"trace_id,omitempty"`
}
