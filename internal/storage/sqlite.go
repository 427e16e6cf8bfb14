package storage

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"aura/internal/meeting"
)

// sessionRow is the table layout; Seq keeps the in-memory order.
type sessionRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Seq        int    `gorm:"index"`
	Title      string
	Transcript string
	Summary    string
	UpdatedAt  time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]meeting.Record, error) {
	var rows []sessionRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	records := make([]meeting.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, meeting.Record{
			ID:         r.ID,
			Title:      r.Title,
			Transcript: r.Transcript,
			Summary:    r.Summary,
		})
	}
	return records, nil
}

// Save upserts every record and removes rows that are no longer present.
func (s *SQLite) Save(ctx context.Context, records []meeting.Record) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(records))
		for i, r := range records {
			row := sessionRow{
				ID:         r.ID,
				Seq:        i,
				Title:      r.Title,
				Transcript: r.Transcript,
				Summary:    r.Summary,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"seq", "title", "transcript", "summary", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("upsert %s: %w", r.ID, err)
			}
			ids = append(ids, r.ID)
		}

		q := tx.Model(&sessionRow{})
		if len(ids) > 0 {
			q = q.Where("id NOT IN ?", ids)
		} else {
			q = q.Where("1 = 1")
		}
		if err := q.Delete(&sessionRow{}).Error; err != nil {
			return fmt.Errorf("prune sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Debug("Sessions saved to sqlite", "count", len(records))
	return nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
