package mq

import "time"

// ProjectCreatedPayload 项目创建事件
type ProjectCreatedPayload struct {
	ProjectID string    `json:"project_id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// ProjectDeletedPayload 项目删除事件
type ProjectDeletedPayload struct {
	ProjectID string `json:"project_id"`
	DeletedBy string `json:"deleted_by"`
	TraceID   string `json:"trace_id,omitempty"`
}
