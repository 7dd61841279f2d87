// Package history persists completed downloads to a local SQLite
// database so finished items survive list clears and restarts.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/remedia-app/remedia/internal/media"
)

// Record is one completed download.
type Record struct {
	ID             uint   `gorm:"primaryKey"`
	URL            string `gorm:"index;not null"`
	Title          string
	CollectionName string
	Subfolder      string
	OutputDir      string
	DownloadedAt   time.Time `gorm:"index"`
}

// SortOrder orders history queries.
type SortOrder string

const (
	SortRecentFirst SortOrder = "recent_first"
	SortOldestFirst SortOrder = "oldest_first"
	SortTitleAsc    SortOrder = "title_asc"
)

// Filter narrows a history query. Zero values mean "no constraint".
type Filter struct {
	SearchQuery    string
	CollectionName string
	Since          time.Time
	Limit          int
	SortBy         SortOrder
}

// Stats summarizes the stored history.
type Stats struct {
	Total       int64
	Collections int64
}

// Store wraps the history database.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the history database at path, enabling WAL and
// migrating the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddCompleted records a finished download. Re-downloads of the same URL
// replace the previous entry rather than accumulating.
func (s *Store) AddCompleted(rec media.MediaRecord, outputDir string) error {
	if rec.URL == "" {
		return fmt.Errorf("history record requires a url")
	}

	s.db.Where("url = ?", rec.URL).Delete(&Record{})

	entry := Record{
		URL:            rec.URL,
		Title:          rec.Title,
		CollectionName: rec.CollectionName,
		Subfolder:      rec.Subfolder,
		OutputDir:      outputDir,
		DownloadedAt:   time.Now(),
	}
	return s.db.Create(&entry).Error
}

// Query returns history records matching the filter.
func (s *Store) Query(f Filter) ([]Record, error) {
	q := s.db.Model(&Record{})

	if f.SearchQuery != "" {
		like := "%" + strings.TrimSpace(f.SearchQuery) + "%"
		q = q.Where("title LIKE ? OR url LIKE ?", like, like)
	}
	if f.CollectionName != "" {
		q = q.Where("collection_name = ?", f.CollectionName)
	}
	if !f.Since.IsZero() {
		q = q.Where("downloaded_at >= ?", f.Since)
	}

	switch f.SortBy {
	case SortOldestFirst:
		q = q.Order("downloaded_at ASC")
	case SortTitleAsc:
		q = q.Order("title ASC")
	default:
		q = q.Order("downloaded_at DESC")
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var records []Record
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return records, nil
}

// Recent returns the latest n records.
func (s *Store) Recent(n int) ([]Record, error) {
	return s.Query(Filter{Limit: n})
}

// Contains reports whether url was downloaded before.
func (s *Store) Contains(url string) (bool, error) {
	var count int64
	if err := s.db.Model(&Record{}).Where("url = ?", url).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteByID removes one record.
func (s *Store) DeleteByID(id uint) error {
	return s.db.Delete(&Record{}, id).Error
}

// Clear removes all history.
func (s *Store) Clear() error {
	return s.db.Where("1 = 1").Delete(&Record{}).Error
}

// GetStats summarizes the stored history.
func (s *Store) GetStats() (Stats, error) {
	var stats Stats
	if err := s.db.Model(&Record{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, err
	}
	err := s.db.Model(&Record{}).
		Where("collection_name <> ''").
		Distinct("collection_name").
		Count(&stats.Collections).Error
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
