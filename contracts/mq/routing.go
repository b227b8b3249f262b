package mq

// Routing keys on the "events" topic exchange.
const (
	RoutingKeyProjectCreated    = "project.created"
	RoutingKeyProjectDeleted    = "project.deleted"
	RoutingKeyTaskCreated       = "task.created"
	RoutingKeyMemberInvited     = "member.invited"
	RoutingKeyMemberRemoved     = "member.removed"
	RoutingKeyMemberRoleChanged = "member.role_changed"
)

// Aggregate types recorded on outbox rows.
const (
	AggregateProject = "project"
	AggregateTask    = "task"
	AggregateMember  = "project_member"
)
