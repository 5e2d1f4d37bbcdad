package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func NewSQLiteDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&TrackedThread{}); err != nil {
		return nil, fmt.Errorf("auto migrating: %w", err)
	}

	return db, nil
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the tracked issue number for a thread, or ok=false when the
// thread has no recorded issue.
func (s *Store) Get(ctx context.Context, threadID string) (int, bool, error) {
	var row TrackedThread
	err := s.db.WithContext(ctx).First(&row, "thread_id = ?", threadID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting tracked thread: %w", err)
	}
	return row.IssueNumber, true, nil
}

func (s *Store) Put(ctx context.Context, threadID string, issueNumber int, issueURL, createdBy string) error {
	row := TrackedThread{
		ThreadID:    threadID,
		IssueNumber: issueNumber,
		IssueURL:    issueURL,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("saving tracked thread: %w", err)
	}
	return nil
}
