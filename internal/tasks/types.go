package tasks

import "time"

// Task Types
const (
	TaskTypeAuditPurge = "audit:purge"
)

// Task Queues
const (
	QueueDefault = "default"
	QueueLow     = "low" // background cleanup
)

// Task Timeouts
const (
	TimeoutMedium = 5 * time.Minute
)

// Task Retry Settings
const (
	RetryDefault = 3
)
