package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskType names a one-off task that pays a bonus once per user
type TaskType string

const (
	TaskJoinChannel TaskType = "join_channel"
	TaskJoinGroup   TaskType = "join_group"
)

// TaskCompletion records that a user finished a task and what it paid
type TaskCompletion struct {
	UserID      int64           `db:"user_id" json:"userId"`
	Task        TaskType        `db:"task" json:"task"`
	Bonus       decimal.Decimal `db:"bonus" json:"bonus"`
	CompletedAt time.Time       `db:"completed_at" json:"completedAt"`
}

// TaskOutcome describes a CompleteTask call. FirstCompletion is false when the
// task was completed earlier and nothing was paid this time.
type TaskOutcome struct {
	User            *User           `json:"user"`
	Task            TaskType        `json:"task"`
	Bonus           decimal.Decimal `json:"bonus"`
	FirstCompletion bool            `json:"firstCompletion"`
}
