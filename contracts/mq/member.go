package mq

// MemberInvitedPayload 成员加入项目事件
type MemberInvitedPayload struct {
	ProjectID string `json:"project_id"`
	MemberID  string `json:"member_id"`
	ProfileID string `json:"profile_id"`
	Role      string `json:"role"`
	InvitedBy string `json:"invited_by"`
	TraceID   string `json:"trace_id,omitempty"`
}

// MemberRemovedPayload 成员移除事件；自己退出时 RemovedBy 等于 ProfileID
type MemberRemovedPayload struct {
	ProjectID string `json:"project_id"`
	MemberID  string `json:"member_id"`
	ProfileID string `json:"profile_id"`
	RemovedBy string `json:"removed_by"`
	TraceID   string `json:"trace_id,omitempty"`
}

// MemberRoleChangedPayload 成员角色变更事件
type MemberRoleChangedPayload struct {
	ProjectID string `json:"project_id"`
	MemberID  string `json:"member_id"`
	ProfileID string `json:"profile_id"`
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
	ChangedBy string `json:"changed_by"`
	TraceID   string `json:"trace_id,omitempty"`
}
