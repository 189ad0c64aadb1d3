// Package history is the durable interaction log: one row per processed
// message, append-only, backed by SQLite.
package history

import (
	"context"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TimeLayout is the timestamp format stored in interaction rows.
const TimeLayout = "2006-01-02 15:04:05"

// Interaction is one processed turn. Rows are written once and never
// updated or deleted.
type Interaction struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	Timestamp         string `gorm:"type:text;not null"`
	ChatID            int64  `gorm:"not null;index"`
	ChatTitle         string `gorm:"type:text"`
	ContextMessages   string `gorm:"type:text;not null"` // JSON array of window texts
	DetectedTopic     string `gorm:"type:text"`
	Sentiment         string `gorm:"type:text"`
	BotResponse       string `gorm:"type:text"`
	ResponseGenerated bool   `gorm:"not null"`
	ParticipantsCount int
}

func (Interaction) TableName() string { return "chat_interactions" }

// Repo provides append and read-back over the interaction table.
type Repo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open opens (or creates) the SQLite database at path and migrates the
// interaction table.
func Open(path string, logger *logrus.Logger) (*Repo, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewRepo(db, logger)
}

// NewRepo wraps an existing gorm handle; tests pass an in-memory one.
func NewRepo(db *gorm.DB, logger *logrus.Logger) (*Repo, error) {
	if err := db.AutoMigrate(&Interaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate interactions table: %w", err)
	}
	return &Repo{db: db, logger: logger}, nil
}

// Append durably persists one interaction row.
func (r *Repo) Append(ctx context.Context, rec *Interaction) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return nil
}

// Recent returns the most recent interactions, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []Interaction
	err := r.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}
	return rows, nil
}
