package store

// TrackedThread is the persisted link between a forum thread and its
// issue. The thread's message history remains the source of truth; rows
// here only spare a history scan.
type TrackedThread struct {
	ThreadID    string `gorm:"primaryKey"`
	IssueNumber int    `gorm:"not null"`
	IssueURL    string `gorm:"not null"`
	CreatedBy   string
	CreatedAt   int64 `gorm:"not null"`
}
